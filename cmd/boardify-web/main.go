//go:build js && wasm
// +build js,wasm

// Command boardify-web runs the layout manager in the browser, persisting to
// window.localStorage, and exposes it to the page as window.boardify.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"syscall/js"

	log "github.com/sirupsen/logrus"

	"github.com/recera/boardify/pkg/board"
	"github.com/recera/boardify/pkg/kv"
	"github.com/recera/boardify/pkg/positions"
	"github.com/recera/boardify/pkg/viewport"
)

func main() {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{DisableColors: true, DisableTimestamp: true})

	store := positions.New(kv.NewLocalStorage(), positions.WithLogger(logger))
	mgr := board.New(board.Config{
		URL:    cardsURL(),
		Store:  store,
		Logger: logger,
	})

	js.Global().Set("boardify", exports(mgr, store, logger))

	// Pending saves would be lost with the page.
	js.Global().Call("addEventListener", "pagehide", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		store.FlushPositions()
		store.FlushView()
		return nil
	}))

	// Network calls must not run on the JS event loop goroutine.
	go mgr.Load(context.Background())

	select {}
}

// cardsURL honours window.boardifyCardsURL and falls back to /cards.json on
// the page's origin.
func cardsURL() string {
	if u := js.Global().Get("boardifyCardsURL"); u.Type() == js.TypeString {
		return u.String()
	}
	return js.Global().Get("location").Get("origin").String() + "/cards.json"
}

func exports(mgr *board.Manager, store *positions.Store, logger log.FieldLogger) js.Value {
	api := map[string]interface{}{
		"load": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			go mgr.Load(context.Background())
			return nil
		}),
		"retry": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			go mgr.Retry(context.Background())
			return nil
		}),
		"reset": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			go mgr.Reset(context.Background())
			return nil
		}),
		"changePosition": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			if len(args) < 3 {
				return nil
			}
			mgr.ChangePosition(args[0].Int(), args[1].Float(), args[2].Float())
			return nil
		}),
		"snapshot": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			return toJSON(logger, mgr.Snapshot())
		}),
		"subscribe": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			if len(args) < 1 || args[0].Type() != js.TypeFunction {
				return nil
			}
			fn := args[0]
			unsubscribe := mgr.Subscribe(func(s board.Snapshot) {
				fn.Invoke(toJSON(logger, s))
			})
			return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
				unsubscribe()
				return nil
			})
		}),
		"dismissNotice": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			mgr.DismissNotice()
			return nil
		}),
		"exportLayout": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			var buf bytes.Buffer
			if err := mgr.ExportLayout(&buf); err != nil {
				return nil
			}
			return buf.String()
		}),
		"loadView": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			return toJSON(logger, store.LoadView(context.Background()))
		}),
		"saveView": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			if len(args) < 1 {
				return nil
			}
			raw := js.Global().Get("JSON").Call("stringify", args[0]).String()
			var view viewport.ViewState
			if err := json.Unmarshal([]byte(raw), &view); err != nil {
				logger.WithError(err).Warn("Ignoring malformed view")
				return nil
			}
			store.SaveViewDebounced(view, positions.DefaultViewDelay)
			return nil
		}),
	}
	return js.ValueOf(api)
}

func toJSON(logger log.FieldLogger, v any) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		logger.WithError(err).Error("Failed to encode value for the page")
		return nil
	}
	return string(data)
}
