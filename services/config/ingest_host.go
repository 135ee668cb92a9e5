//go:build !(rp2040 || rp2350)

package config

// LoadIngestFile reads the collector config. An empty path yields defaults.
func LoadIngestFile(path string) (Ingest, error) {
	var c Ingest
	if path != "" {
		if err := decodeYAMLFile(path, &c); err != nil {
			return Ingest{}, err
		}
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return Ingest{}, err
	}
	return c, nil
}
