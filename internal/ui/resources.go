package ui

import (
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
)

const (
	AppIcon = "synqed.png"
)

// LoadLogoResource loads the logo from the working directory or from next to
// the executable
func LoadLogoResource() (fyne.Resource, error) {
	res, err := fyne.LoadResourceFromPath(AppIcon)
	if err == nil {
		return res, nil
	}
	exe, exeErr := os.Executable()
	if exeErr != nil {
		return nil, err
	}
	return fyne.LoadResourceFromPath(filepath.Join(filepath.Dir(exe), AppIcon))
}
