package loader

import (
	"strings"

	"github.com/KaramelBytes/casewrangle-cli/internal/frame"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".xlsx")
}

func (xlsxLoader) Load(path string, opt frame.ReadOptions) (*frame.Frame, error) {
	return frame.ReadXLSX(path, opt)
}
