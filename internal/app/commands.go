package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chunk_visualizer/internal/chunker"
	"chunk_visualizer/internal/render"
	"chunk_visualizer/internal/strategy"
)

var errUsage = errors.New("usage")

const helpText = `Commands:
  file <path.pdf>          select a local PDF
  upload                   upload the selected file
  strategies               list strategies (fetches the catalog if missing)
  strategy <name>          select a strategy
  set <key> <value>        set a parameter of the selected strategy
  params                   show the parameters that will be sent
  chunk                    chunk the uploaded document
  show                     show the status and the last result
  search <query>           preview which chunks a retriever would return
  report <path>            write the last result as .md or .html
  load-params <path>       load a YAML parameter preset
  save-params <path>       save all parameters as a YAML preset
  reset                    clear file, upload and result
  help                     show this help
  quit                     leave the session
`

func (a *App) handle(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	a.log.Debug("command", "cmd", cmd, "arg", arg)

	switch cmd {
	case "help", "?":
		fmt.Fprint(a.out, helpText)
	case "quit", "exit":
		return errQuit
	case "file":
		if arg == "" {
			return fmt.Errorf("%w: file <path.pdf>", errUsage)
		}
		if err := a.selectFile(arg); err != nil {
			return err
		}
		fmt.Fprint(a.out, render.Status(a.ctrl.Snapshot()))
	case "upload":
		fmt.Fprintln(a.out, "⏳ Uploading...")
		if err := a.ctrl.Upload(ctx); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "✅ Uploaded as %s\n", a.ctrl.Snapshot().ServerFilename)
	case "strategies":
		if err := a.ctrl.Initialize(ctx); err != nil {
			return err
		}
		fmt.Fprint(a.out, render.Strategies(a.ctrl.Snapshot()))
	case "strategy":
		if arg == "" {
			return fmt.Errorf("%w: strategy <name>", errUsage)
		}
		if err := a.ctrl.SelectStrategy(arg); err != nil {
			return err
		}
		fmt.Fprint(a.out, render.Params(a.ctrl.Snapshot().Params))
	case "set":
		key, value, ok := strings.Cut(arg, " ")
		if !ok {
			return fmt.Errorf("%w: set <key> <value>, keys: %s", errUsage,
				strings.Join(strategy.Keys(a.ctrl.Snapshot().Params.Kind()), ", "))
		}
		if err := a.ctrl.Configure(key, value); err != nil {
			return err
		}
		fmt.Fprint(a.out, render.Params(a.ctrl.Snapshot().Params))
	case "params":
		fmt.Fprint(a.out, render.Params(a.ctrl.Snapshot().Params))
	case "chunk":
		if err := a.chunk(ctx); err != nil {
			return err
		}
		if a.cfg.Output != "" {
			return a.writeReport(a.cfg.Output)
		}
	case "show":
		a.show()
	case "search":
		if arg == "" {
			return fmt.Errorf("%w: search <query>", errUsage)
		}
		return a.search(ctx, arg)
	case "report":
		if arg == "" {
			return fmt.Errorf("%w: report <path>", errUsage)
		}
		return a.writeReport(arg)
	case "load-params":
		if arg == "" {
			return fmt.Errorf("%w: load-params <path>", errUsage)
		}
		if err := a.loadParams(arg); err != nil {
			return err
		}
		fmt.Fprint(a.out, render.Params(a.ctrl.Snapshot().Params))
	case "save-params":
		if arg == "" {
			return fmt.Errorf("%w: save-params <path>", errUsage)
		}
		if err := a.saveParams(arg); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "💾 Params saved to: %s\n", arg)
	case "reset":
		if err := a.ctrl.Reset(); err != nil {
			return err
		}
		a.runParams = nil
		fmt.Fprint(a.out, render.Status(a.ctrl.Snapshot()))
	default:
		return fmt.Errorf("unknown command %q, type 'help'", cmd)
	}
	return nil
}

func (a *App) chunk(ctx context.Context) error {
	params := a.ctrl.Snapshot().Params
	fmt.Fprintf(a.out, "⏳ Chunking with %s...\n", params.Name)
	if err := a.ctrl.Chunk(ctx); err != nil {
		return err
	}
	a.runParams = &params
	a.show()
	return nil
}

func (a *App) show() {
	st := a.ctrl.Snapshot()
	fmt.Fprint(a.out, render.Status(st))
	if st.Result == nil {
		return
	}
	fmt.Fprintln(a.out)
	rows := chunker.Analyze(*st.Result, a.counter)
	fmt.Fprint(a.out, render.Result(*st.Result, rows, render.DefaultBarWidth))
}
