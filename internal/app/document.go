package app

import (
	"fmt"

	"chunk_visualizer/internal/document"
)

// selectFile inspects path and hands it to the workflow. Anything that is
// not a PDF is refused before it reaches the controller.
func (a *App) selectFile(path string) error {
	doc, err := document.Inspect(path)
	if err != nil {
		return err
	}

	if err := a.ctrl.SelectFile(doc); err != nil {
		return err
	}
	a.runParams = nil

	a.log.Info("file loaded", "name", doc.Name, "bytes", doc.Size, "pages", doc.Pages)
	if doc.Pages == 0 {
		fmt.Fprintf(a.out, "⚠️  Could not read pages of %s, the service will decide\n", doc.Name)
	}
	return nil
}
