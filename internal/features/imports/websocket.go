package imports

import (
	"context"
	"sync"

	"go-psa/internal/models"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// ProgressHub fans import progress snapshots out to websocket
// subscribers, keyed by execution id. Publishing never blocks the
// engine: a subscriber that falls behind drops intermediate snapshots
// and keeps only the latest.
type ProgressHub struct {
	mu   sync.Mutex
	subs map[string]map[chan models.ImportProgress]struct{}
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		subs: make(map[string]map[chan models.ImportProgress]struct{}),
	}
}

func (h *ProgressHub) Subscribe(executionID string) chan models.ImportProgress {
	ch := make(chan models.ImportProgress, 1)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[executionID] == nil {
		h.subs[executionID] = make(map[chan models.ImportProgress]struct{})
	}
	h.subs[executionID][ch] = struct{}{}
	return ch
}

func (h *ProgressHub) Unsubscribe(executionID string, ch chan models.ImportProgress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[executionID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(h.subs, executionID)
		}
	}
}

func (h *ProgressHub) Publish(progress models.ImportProgress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[progress.ExecutionID.Hex()] {
		select {
		case ch <- progress:
		default:
			// Replace the stale snapshot with the current one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- progress:
			default:
			}
		}
	}
}

type ProgressSocketController struct {
	Hub     *ProgressHub
	Service ImportService
	Log     *zap.Logger
}

func NewProgressSocketController(hub *ProgressHub, service ImportService, log *zap.Logger) *ProgressSocketController {
	return &ProgressSocketController{Hub: hub, Service: service, Log: log}
}

// HandleProgress streams progress snapshots for one execution until the
// execution reaches a terminal status or the client disconnects.
func (h *ProgressSocketController) HandleProgress(c *websocket.Conn) {
	executionID := c.Params("id")

	ch := h.Hub.Subscribe(executionID)
	defer h.Hub.Unsubscribe(executionID, ch)

	// Initial snapshot so a client that connects after the run finished
	// still sees the terminal state instead of waiting forever.
	if exec, err := h.Service.GetExecution(context.Background(), executionID); err == nil {
		progress := models.ImportProgress{
			ExecutionID:       exec.ID,
			Status:            exec.Status,
			TotalRecords:      exec.TotalRecords,
			ProcessedRecords:  exec.ProcessedRecords,
			SuccessfulRecords: exec.SuccessfulRecords,
			FailedRecords:     exec.FailedRecords,
			SkippedRecords:    exec.SkippedRecords,
		}
		if err := c.WriteJSON(progress); err != nil {
			return
		}
		if exec.Status.Terminal() {
			return
		}
	}

	for progress := range ch {
		if err := c.WriteJSON(progress); err != nil {
			h.Log.Debug("websocket write failed", zap.String("execution", executionID), zap.Error(err))
			return
		}
		if progress.Status.Terminal() {
			return
		}
	}
}
