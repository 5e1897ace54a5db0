package loader

import (
	"strings"

	"github.com/KaramelBytes/casewrangle-cli/internal/frame"
)

type csvLoader struct{}

func (csvLoader) CanLoad(path string) bool {
	name := strings.ToLower(path)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

func (csvLoader) Load(path string, opt frame.ReadOptions) (*frame.Frame, error) {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		opt.Delimiter = '\t'
	}
	return frame.ReadCSVFile(path, opt)
}
