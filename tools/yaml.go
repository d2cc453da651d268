package tools

import (
	"io"

	"github.com/Comcast/chatter/loader"

	"gopkg.in/yaml.v2"
)

// WriteYAML writes the corpus in the YAML category format, which is
// handy for converting AIML.
func WriteYAML(c *loader.Corpus, out io.Writer) error {
	bs, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	_, err = out.Write(bs)
	return err
}
