package access

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// pingQueueSize bounds the outbound audit queue. A full queue drops pings
// rather than blocking the caller.
const pingQueueSize = 256

type pingEvent struct {
	Action  string `json:"action"`
	Details string `json:"details"`
	Level   string `json:"level"`
}

// AuditPinger POSTs audit events to a backend endpoint from a background
// goroutine. The send path is one-way: no caller ever observes its outcome,
// and transport failures are logged at most.
type AuditPinger struct {
	url    string
	token  func() string
	client *http.Client
	events chan pingEvent
	wg     sync.WaitGroup
}

var _ Pinger = (*AuditPinger)(nil)

// NewAuditPinger creates a pinger for the given audit endpoint and starts
// its dispatch loop. token, when non-nil, supplies the bearer token per
// send so the pinger follows session changes.
func NewAuditPinger(url string, token func() string) *AuditPinger {
	p := &AuditPinger{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 5 * time.Second},
		events: make(chan pingEvent, pingQueueSize),
	}
	p.wg.Add(1)
	go p.loop()
	return p
}

// Ping enqueues an audit event. Never blocks; drops when the queue is full.
func (p *AuditPinger) Ping(action, details, level string) {
	select {
	case p.events <- pingEvent{Action: action, Details: details, Level: level}:
	default:
		slog.Debug("audit pinger: queue full, dropping event", "action", action)
	}
}

// Close drains the queue and stops the dispatch loop.
func (p *AuditPinger) Close() {
	close(p.events)
	p.wg.Wait()
}

func (p *AuditPinger) loop() {
	defer p.wg.Done()
	for evt := range p.events {
		p.send(evt)
	}
}

func (p *AuditPinger) send(evt pingEvent) {
	body, err := json.Marshal(evt)
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != nil {
		if tok := p.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		slog.Debug("audit pinger: send failed", "error", err)
		return
	}
	resp.Body.Close()
}
