package errors

import (
	"log/slog"
	"sync"

	"deninstall/internal/ui"
)

var (
	defaultHandler *ErrorHandler
	once           sync.Once
)

func GetDefaultHandler() (*ErrorHandler, error) {
	var err error
	once.Do(func() {
		defaultHandler, err = NewErrorHandler()
	})
	return defaultHandler, err
}

// HandleError reports err through the default handler. When the log file
// cannot be opened the error still reaches the console.
func HandleError(err error) {
	if err == nil {
		return
	}
	handler, handlerErr := GetDefaultHandler()
	if handlerErr != nil || handler == nil {
		handler = &ErrorHandler{
			logger:  slog.New(slog.DiscardHandler),
			console: ui.NewConsole(),
		}
	}
	handler.Handle(err)
}

// resetDefaultHandler resets the singleton for testing purposes
func resetDefaultHandler() {
	defaultHandler = nil
	once = sync.Once{}
}
