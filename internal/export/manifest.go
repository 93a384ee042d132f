package export

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/crime-etl/internal/model"
)

// Manifest summarizes one export: when it ran, the row counts, and the files written.
type Manifest struct {
	GeneratedAt time.Time      `yaml:"generated_at"`
	Stats       model.RunStats `yaml:"stats"`
	Files       []ManifestFile `yaml:"files"`
}

// ManifestFile is one exported file and its data row count.
type ManifestFile struct {
	Name string `yaml:"name"`
	Rows int    `yaml:"rows"`
}

func writeManifest(out io.Writer, m Manifest) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return eris.Wrap(err, "export: encode manifest")
	}
	return eris.Wrap(enc.Close(), "export: close manifest encoder")
}
