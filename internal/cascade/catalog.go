package cascade

import "maintenance-service/internal/models"

// CatalogEntry maps a sensor type to the work-order text and the specialty
// the resulting order requires.
type CatalogEntry struct {
	Problem   string `json:"problem"`
	Specialty string `json:"specialty"`
}

// Catalog is the sensor-type lookup table. It is plain data so tests and
// deployments can swap it without touching dispatch or cascade logic.
type Catalog struct {
	Version string                            `json:"version"`
	Entries map[models.SensorType]CatalogEntry `json:"entries"`
	Default CatalogEntry                      `json:"default"`
}

// Lookup returns the entry for the type, falling back to the generic one
// for unknown types.
func (c Catalog) Lookup(t models.SensorType) CatalogEntry {
	if e, ok := c.Entries[t]; ok {
		return e
	}
	return c.Default
}

func DefaultCatalog() Catalog {
	return Catalog{
		Version: "v1",
		Entries: map[models.SensorType]CatalogEntry{
			models.SensorTemperature: {Problem: "Temperature problem", Specialty: "HVAC"},
			models.SensorPressure:    {Problem: "Pressure problem", Specialty: "Hydraulics"},
			models.SensorVibration:   {Problem: "Abnormal vibration", Specialty: "Mechanical"},
			models.SensorCurrent:     {Problem: "Electrical problem - current", Specialty: "Industrial Electricity"},
			models.SensorVoltage:     {Problem: "Electrical problem - voltage", Specialty: "Industrial Electricity"},
			models.SensorHumidity:    {Problem: "Humidity problem", Specialty: "HVAC"},
		},
		Default: CatalogEntry{Problem: "Problem detected by sensor", Specialty: "General"},
	}
}
