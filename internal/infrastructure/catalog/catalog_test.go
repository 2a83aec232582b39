package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"agroscan/internal/domain/entity"
)

func TestDefault_LabelsInModelOrder(t *testing.T) {
	c := Default()
	require.Equal(t, []string{
		"Early blight",
		"Healthy",
		"Late blight",
		"Leaf Miner",
		"Magnesium Deficiency",
		"Nitrogen Deficiency",
		"Pottassium Deficiency",
		"Spotted Wilt Virus",
	}, c.Labels())
}

func TestDefault_Describe(t *testing.T) {
	c := Default()

	d, ok := c.Describe("Late blight")
	require.True(t, ok)
	require.Equal(t, "Serious fungal disease causing dark lesions.", d.Info)
	require.Equal(t, "Remove affected plants immediately.", d.Treatment)
	require.Equal(t, "Use Metalaxyl + Mancozeb spray.", d.Spray)

	_, ok = c.Describe("Powdery mildew")
	require.False(t, ok)
}

func TestCatalog_LabelsIsCopy(t *testing.T) {
	c := Default()
	labels := c.Labels()
	labels[0] = "changed"
	require.Equal(t, "Early blight", c.Labels()[0])
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":     "diseases: []",
		"no label":  "diseases:\n  - info: a\n    treatment: b\n    spray: c\n",
		"duplicate": "diseases:\n  - {label: A, info: a, treatment: b, spray: c}\n  - {label: A, info: a, treatment: b, spray: c}\n",
		"no spray":  "diseases:\n  - {label: A, info: a, treatment: b}\n",
		"bad yaml":  "diseases: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			require.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("diseases:\n  - {label: Rust, info: a, treatment: b, spray: c}\n"), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"Rust"}, c.Labels())

	c, err = LoadFile("")
	require.NoError(t, err)
	require.Len(t, c.Labels(), 8)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestTranslations(t *testing.T) {
	tr := DefaultTranslations()

	require.Equal(t, "Upload Tomato Leaf Image", tr.Text(entity.LanguageEnglish, "upload"))
	require.Equal(t, "टमाटर पत्ती की तस्वीर अपलोड करें", tr.Text(entity.LanguageHindi, "upload"))
	require.Equal(t, "विश्वास स्तर", tr.For(entity.LanguageHindi)("confidence"))

	// Без перевода берётся английская строка, без ключа сам ключ.
	require.Equal(t, tr.Text(entity.LanguageEnglish, "footer"), tr.Text(entity.LanguageHindi, "footer"))
	require.Equal(t, "no_such_key", tr.Text(entity.LanguageHindi, "no_such_key"))
}

func TestParseTranslations_RequiresEnglish(t *testing.T) {
	_, err := ParseTranslations([]byte("hi:\n  upload: x\n"))
	require.Error(t, err)
}
