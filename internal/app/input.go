package app

import (
	"context"
	"sync"

	"github.com/eiannone/keyboard"
	"go.uber.org/zap"
)

type inputEvent int

const (
	inputEventToggle inputEvent = iota
	inputEventExcite
	inputEventCalm
	inputEventRestart
	inputEventQuit
)

func keyToEvent(char rune, key keyboard.Key) (inputEvent, bool) {
	switch {
	case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
		return inputEventQuit, true
	case char == 'q' || char == 'Q':
		return inputEventQuit, true
	case key == keyboard.KeySpace || char == ' ':
		return inputEventToggle, true
	case char == 'e' || char == 'E':
		return inputEventExcite, true
	case char == 'c' || char == 'C':
		return inputEventCalm, true
	case char == 'r' || char == 'R':
		return inputEventRestart, true
	}
	return 0, false
}

// startInputListener feeds key presses into a.inputEvents until ctx ends.
// Without a usable keyboard the channel stays nil.
func (a *App) startInputListener(ctx context.Context) {
	if err := keyboard.Open(); err != nil {
		a.log.Info("keyboard input disabled", zap.Error(err))
		a.inputEvents = nil
		return
	}

	events := make(chan inputEvent, 16)
	a.inputEvents = events

	closeOnce := &sync.Once{}
	go func() {
		<-ctx.Done()
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}()

	go func() {
		defer close(events)
		defer closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			evt, ok := keyToEvent(char, key)
			if !ok {
				continue
			}
			if evt == inputEventQuit {
				events <- evt
				return
			}
			select {
			case events <- evt:
			default:
			}
		}
	}()
}
