package panel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/exchange"
	"github.com/bobmcallan/storage-inspector/internal/models"
	"github.com/bobmcallan/storage-inspector/internal/relay"
	"github.com/bobmcallan/storage-inspector/internal/surface"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeTimeout   = 10 * time.Second
	commandTimeout = 30 * time.Second
)

// Handler serves GET /ws/panel.
type Handler struct {
	view   *surface.View
	relay  *relay.Relay
	logger *common.Logger
	now    func() time.Time
}

// NewHandler creates the panel port handler.
func NewHandler(view *surface.View, r *relay.Relay, logger *common.Logger) *Handler {
	return &Handler{view: view, relay: r, logger: logger, now: time.Now}
}

// session is one connected panel.
type session struct {
	h    *Handler
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex

	mu          sync.Mutex
	storageType models.Category
}

// ServeHTTP upgrades the connection and runs the command loop until the
// panel disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("panel upgrade failed")
		return
	}
	defer conn.Close()

	s := &session{h: h, id: "panel-" + uuid.NewString(), conn: conn}

	_, unsubscribe := h.relay.Subscribe(s.id, s.onChange)
	defer unsubscribe()

	h.logger.Info().Str("session", s.id).Msg("panel connected")
	defer h.logger.Info().Str("session", s.id).Msg("panel disconnected")

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				h.logger.Debug().Err(err).Str("session", s.id).Msg("panel read ended")
			}
			return
		}
		s.handle(r.Context(), req)
	}
}

func (s *session) send(resp Response) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(resp); err != nil {
		s.h.logger.Debug().Err(err).Str("session", s.id).Str("type", resp.Type).Msg("panel write failed")
	}
}

func (s *session) sendError(cmd string, err error) {
	s.h.logger.Warn().Err(err).Str("session", s.id).Str("command", cmd).Msg("panel command failed")
	s.send(Response{Type: TypeError, Data: ErrorData{Command: cmd, Message: err.Error()}})
}

// onChange runs on the relay goroutine for this session.
func (s *session) onChange(n models.ChangeNotification) {
	s.send(Response{Type: TypeStorageChanged, Data: n})
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	s.pushStorage(ctx)
}

func (s *session) currentType() models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storageType
}

func (s *session) setType(raw string) error {
	cat, err := models.ParseItemFilter(raw)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.storageType = cat
	s.mu.Unlock()
	return nil
}

// pushStorage refreshes and sends the rows of the selected storage type.
func (s *session) pushStorage(ctx context.Context) {
	if _, err := s.h.view.Refresh(ctx); err != nil && !errors.Is(err, models.ErrUnreachable) {
		s.h.logger.Debug().Err(err).Msg("panel refresh partial")
	}
	s.send(Response{Type: TypeStorageUpdate, Data: s.h.view.Rows(s.currentType(), "")})
}

func (s *session) pushWorkers(ctx context.Context, cmd string) {
	workers, err := s.h.view.RefreshWorkers(ctx)
	if err != nil {
		s.sendError(cmd, err)
		return
	}
	s.send(Response{Type: TypeSWUpdate, Data: workers})
}

func (s *session) pushCaches(ctx context.Context, cmd string) {
	caches, err := s.h.view.RefreshCaches(ctx)
	if err != nil {
		s.sendError(cmd, err)
		return
	}
	s.send(Response{Type: TypeCacheUpdate, Data: caches})
}

func (s *session) handle(parent context.Context, req Request) {
	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()

	if target := s.h.view.Facade().Target(); req.TabID != "" && req.TabID != target.ID {
		s.sendError(req.Name, fmt.Errorf("%w: tab %s is not the inspected tab", models.ErrInvalidArgument, req.TabID))
		return
	}

	switch req.Name {
	case CmdInit, CmdGetStorage:
		if req.StorageType != "" || req.Name == CmdGetStorage {
			if err := s.setType(req.StorageType); err != nil {
				s.sendError(req.Name, err)
				return
			}
		}
		s.pushStorage(ctx)

	case CmdGetServiceWorkers:
		s.pushWorkers(ctx, req.Name)

	case CmdGetCache:
		s.pushCaches(ctx, req.Name)

	case CmdUpdateStorage:
		id, err := recordID(req)
		if err != nil {
			s.sendError(req.Name, err)
			return
		}
		if err := s.h.view.Edit(ctx, id, req.Value); err != nil {
			s.sendError(req.Name, err)
		}
		s.send(Response{Type: TypeStorageUpdate, Data: s.h.view.Rows(s.currentType(), "")})

	case CmdDeleteStorage:
		id, err := recordID(req)
		if err != nil {
			s.sendError(req.Name, err)
			return
		}
		if err := s.h.view.Delete(ctx, id); err != nil {
			s.sendError(req.Name, err)
		}
		s.send(Response{Type: TypeStorageUpdate, Data: s.h.view.Rows(s.currentType(), "")})

	case CmdUnregisterSW:
		err := s.h.view.Delete(ctx, models.RecordID{Category: models.CategoryServiceWorker, Key: req.ID})
		if err != nil {
			s.sendError(req.Name, err)
		}
		s.send(Response{Type: TypeSWUpdate, Data: s.h.view.Workers()})

	case CmdDeleteCache:
		name := req.CacheName
		if name == "" {
			name = req.Key
		}
		err := s.h.view.Delete(ctx, models.RecordID{Category: models.CategoryCache, Key: name})
		if err != nil {
			s.sendError(req.Name, err)
		}
		s.send(Response{Type: TypeCacheUpdate, Data: s.h.view.Caches()})

	case CmdExportData:
		if _, err := s.h.view.Refresh(ctx); err != nil {
			s.h.logger.Warn().Err(err).Msg("exporting partial snapshot")
		}
		s.send(Response{Type: TypeExportData, Data: ExportData{
			Filename: exchange.Filename(s.h.now()),
			Document: s.h.view.Export(),
		}})

	case CmdImportData:
		res, err := s.h.view.Import(ctx, req.Data)
		if err != nil {
			s.sendError(req.Name, err)
		} else {
			s.send(Response{Type: TypeImportResult, Data: ImportResult{
				Applied: res.Applied,
				Skipped: res.Skipped,
				Errors:  res.Messages(),
			}})
		}
		s.send(Response{Type: TypeStorageUpdate, Data: s.h.view.Rows(s.currentType(), "")})

	default:
		s.sendError(req.Name, fmt.Errorf("%w: unknown command %q", models.ErrUnsupported, req.Name))
	}
}

func recordID(req Request) (models.RecordID, error) {
	cat, err := models.ParseCategory(req.Type)
	if err != nil {
		return models.RecordID{}, err
	}
	if !cat.IsItem() {
		return models.RecordID{}, fmt.Errorf("%w: %s rows are not editable here", models.ErrUnsupported, req.Type)
	}
	if req.Key == "" {
		return models.RecordID{}, fmt.Errorf("%w: key is required", models.ErrInvalidArgument)
	}
	return models.RecordID{Category: cat, Key: req.Key, Domain: req.Domain}, nil
}
