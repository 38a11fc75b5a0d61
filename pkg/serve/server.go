package serve

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/praetorian-inc/overcol"
	"github.com/praetorian-inc/overcol/pkg/mode"
	"github.com/praetorian-inc/overcol/pkg/style"
)

// Version is the server protocol version
const Version = "1.0.0"

// MaxLineSize is the longest request line the server accepts.
const MaxLineSize = 64 << 20

// ErrUnknownDocument is returned for requests naming a document that is not
// open.
var ErrUnknownDocument = errors.New("unknown document")

// Server drives one overflow mode per open document over NDJSON. Requests
// are handled one at a time in arrival order.
type Server struct {
	engine   *overcol.Engine
	sessions map[string]*overcol.Session
	global   *mode.Global
	logger   *zap.Logger

	highlight style.Descriptor

	encoder *json.Encoder
	lines   *bufio.Scanner
}

// NewServer creates a new streaming server
func NewServer(engine *overcol.Engine, in io.Reader, out io.Writer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	lines := bufio.NewScanner(in)
	lines.Buffer(make([]byte, 64*1024), MaxLineSize)
	highlight, _ := style.Default().Resolve()
	return &Server{
		engine:    engine,
		sessions:  make(map[string]*overcol.Session),
		global:    mode.NewGlobal(),
		logger:    logger,
		highlight: highlight,
		encoder:   json.NewEncoder(out),
		lines:     lines,
	}
}

// SetHighlight resolves d and reports it in the ready response. It must be
// called before Run.
func (s *Server) SetHighlight(d style.Descriptor) error {
	resolved, err := d.Resolve()
	if err != nil {
		return fmt.Errorf("highlight style: %w", err)
	}
	s.highlight = resolved
	return nil
}

// Global returns the auto-enable state shared by all documents.
func (s *Server) Global() *mode.Global { return s.global }

// Run starts the server main loop
func (s *Server) Run(ctx context.Context) error {
	s.sendReady()

	lineChan := make(chan []byte, 1)
	errChan := make(chan error, 1)

	go func() {
		for s.lines.Scan() {
			line := bytes.TrimSpace(s.lines.Bytes())
			if len(line) == 0 {
				continue
			}
			select {
			case lineChan <- bytes.Clone(line):
			case <-ctx.Done():
				return
			}
		}
		// nil at end of input
		errChan <- s.lines.Err()
	}()

	// Process requests until input closes or context cancels
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			// Drain any pending requests before handling end of input
			for {
				select {
				case line := <-lineChan:
					if s.processLine(line) {
						return nil
					}
				default:
					if err != nil {
						s.sendError(TypeDecode, err)
					}
					return nil
				}
			}
		case line := <-lineChan:
			if s.processLine(line) {
				return nil
			}
		}
	}
}

// processLine decodes one request line. A malformed line is answered with a
// decode error and the server keeps reading.
func (s *Server) processLine(line []byte) bool {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		s.sendError(TypeDecode, err)
		return false
	}
	return s.processRequest(req)
}

// processRequest handles a single request and returns true if the server should exit
func (s *Server) processRequest(req Request) bool {
	s.logger.Debug("request", zap.String("type", req.Type))

	var (
		data any
		err  error
	)
	switch req.Type {
	case TypeOpen:
		data, err = s.handleOpen(req.Payload)
	case TypeCloseDoc:
		data, err = s.handleCloseDoc(req.Payload)
	case TypeEdit:
		data, err = s.handleEdit(req.Payload)
	case TypeSync:
		data, err = s.handleSync(req.Payload)
	case TypeRender:
		data, err = s.handleRender(req.Payload)
	case TypeEnable, TypeDisable, TypeToggle:
		data, err = s.handleMode(req.Type, req.Payload)
	case TypeSetLimit:
		data, err = s.handleSetLimit(req.Payload)
	case TypeMarkers:
		data, err = s.handleMarkers(req.Payload)
	case TypeGlobal:
		data, err = s.handleGlobal(req.Payload)
	case TypeClose:
		return true
	default:
		if limit, ok := mode.ParsePresetCommand(req.Type); ok {
			data, err = s.handlePreset(limit, req.Payload)
			break
		}
		s.sendError(TypeUnknown, fmt.Errorf("unknown request type: %s", req.Type))
		return false
	}

	if err != nil {
		s.logger.Debug("request failed", zap.String("type", req.Type), zap.Error(err))
		s.sendError(req.Type, err)
		return false
	}
	s.send(req.Type, data)
	return false
}

func decode[T any](payload json.RawMessage) (T, error) {
	var p T
	if len(payload) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return p, fmt.Errorf("invalid payload: %w", err)
	}
	return p, nil
}

func (s *Server) session(id string) (*overcol.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDocument, id)
	}
	return sess, nil
}

func (s *Server) handleOpen(payload json.RawMessage) (any, error) {
	p, err := decode[OpenPayload](payload)
	if err != nil {
		return nil, err
	}
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := s.sessions[id]; exists {
		return nil, fmt.Errorf("document %q is already open", id)
	}

	sess := s.engine.Open(p.Name, p.Text)
	s.sessions[id] = sess
	s.global.Attach(sess.Mode)
	s.logger.Debug("opened document",
		zap.String("id", id),
		zap.String("name", p.Name),
		zap.String("language", sess.Language.Name))
	return s.state(id, sess), nil
}

func (s *Server) handleCloseDoc(payload json.RawMessage) (any, error) {
	p, err := decode[DocPayload](payload)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(p.ID)
	if err != nil {
		return nil, err
	}
	s.global.Detach(sess.Mode)
	sess.Close()
	delete(s.sessions, p.ID)
	return s.state(p.ID, sess), nil
}

func (s *Server) handleEdit(payload json.RawMessage) (any, error) {
	p, err := decode[EditPayload](payload)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(p.ID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Doc.Replace(p.Start, p.End, p.Text); err != nil {
		return nil, err
	}
	return s.state(p.ID, sess), nil
}

func (s *Server) handleSync(payload json.RawMessage) (any, error) {
	p, err := decode[SyncPayload](payload)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(p.ID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Doc.Sync(p.Text); err != nil {
		return nil, err
	}
	return s.state(p.ID, sess), nil
}

func (s *Server) handleRender(payload json.RawMessage) (any, error) {
	p, err := decode[RangePayload](payload)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(p.ID)
	if err != nil {
		return nil, err
	}
	start, end := bounds(p, sess)
	sess.Doc.RequestRender(start, end)
	st := s.state(p.ID, sess)
	st.Markers = nonNil(sess.Mode.Markers().InRange(start, end))
	return st, nil
}

func (s *Server) handleMode(kind string, payload json.RawMessage) (any, error) {
	p, err := decode[DocPayload](payload)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(p.ID)
	if err != nil {
		return nil, err
	}
	switch kind {
	case TypeEnable:
		sess.Mode.Enable()
	case TypeDisable:
		sess.Mode.Disable()
	case TypeToggle:
		sess.Mode.ToggleIfApplicable()
	}
	return s.state(p.ID, sess), nil
}

func (s *Server) handleSetLimit(payload json.RawMessage) (any, error) {
	p, err := decode[SetLimitPayload](payload)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(p.ID)
	if err != nil {
		return nil, err
	}
	if err := sess.Mode.SetLimit(p.Limit); err != nil {
		return nil, err
	}
	return s.state(p.ID, sess), nil
}

func (s *Server) handlePreset(limit int, payload json.RawMessage) (any, error) {
	p, err := decode[DocPayload](payload)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(p.ID)
	if err != nil {
		return nil, err
	}
	if err := sess.Mode.EnableAt(limit); err != nil {
		return nil, err
	}
	return s.state(p.ID, sess), nil
}

func (s *Server) handleMarkers(payload json.RawMessage) (any, error) {
	p, err := decode[RangePayload](payload)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(p.ID)
	if err != nil {
		return nil, err
	}
	st := s.state(p.ID, sess)
	if p.Start != nil || p.End != nil {
		start, end := bounds(p, sess)
		st.Markers = nonNil(sess.Mode.Markers().InRange(start, end))
	}
	return st, nil
}

func (s *Server) handleGlobal(payload json.RawMessage) (any, error) {
	p, err := decode[GlobalPayload](payload)
	if err != nil {
		return nil, err
	}
	s.global.SetEnabled(p.Enabled)
	return GlobalData{Enabled: s.global.Enabled(), Documents: len(s.sessions)}, nil
}

// bounds resolves an optional range to the whole document by default.
func bounds(p RangePayload, sess *overcol.Session) (int, int) {
	start, end := 0, sess.Doc.Len()
	if p.Start != nil {
		start = *p.Start
	}
	if p.End != nil {
		end = *p.End
	}
	return start, end
}

func nonNil(markers []overcol.Marker) []overcol.Marker {
	if markers == nil {
		return []overcol.Marker{}
	}
	return markers
}

func (s *Server) state(id string, sess *overcol.Session) *DocState {
	return &DocState{
		ID:       id,
		Name:     sess.Doc.Name(),
		Language: sess.Language.Name,
		Category: sess.Language.Category.String(),
		State:    sess.Mode.State().String(),
		Label:    sess.Mode.Label(),
		Limit:    sess.Mode.Limit(),
		Version:  sess.Doc.Version(),
		Markers:  nonNil(sess.Markers()),
	}
}

func (s *Server) sendReady() {
	s.send(TypeReady, ReadyData{
		Version:   Version,
		Presets:   mode.Presets,
		Global:    s.global.Enabled(),
		Highlight: s.highlight,
	})
}

func (s *Server) send(reqType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.sendError(reqType, err)
		return
	}
	if err := s.encoder.Encode(Response{Success: true, Type: reqType, Data: data}); err != nil {
		s.logger.Warn("writing response", zap.Error(err))
	}
}

func (s *Server) sendError(reqType string, err error) {
	if encErr := s.encoder.Encode(Response{Success: false, Type: reqType, Error: err.Error()}); encErr != nil {
		s.logger.Warn("writing error response", zap.Error(encErr))
	}
}
