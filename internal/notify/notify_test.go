package notify

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/expiry-tracker/internal/common"
	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
)

var quietLog = slog.New(slog.DiscardHandler)

func product(owner, name string, d extract.Date) *entity.Product {
	p := &entity.Product{ID: uuid.New(), Owner: owner, ExpiryDate: &d}
	if name != "" {
		p.Name = &name
	}
	return p
}

func TestWindow(t *testing.T) {
	loc := time.FixedZone("X", 5*3600)
	now := time.Date(2026, 12, 30, 22, 15, 0, 0, loc)

	lower, upper := Window(now)
	assert.Equal(t, time.Date(2027, 1, 2, 0, 0, 0, 0, loc), lower)
	assert.Equal(t, time.Date(2027, 1, 2, 23, 59, 59, 999999999, loc), upper)
	assert.Equal(t, "2027-01-02", TargetDay(now).String())
}

func TestDigest(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day := TargetDay(now)
	msg := Digest("bot@example.com", "me@example.com", []*entity.Product{
		product("me@example.com", "Milk", day),
		product("me@example.com", "", day),
	}, now)

	assert.Equal(t, "2 Grocery Item(s) Expiring Soon!", msg.Subject)
	assert.Equal(t, []string{"me@example.com"}, msg.To)
	assert.Contains(t, msg.Body, "1. Milk\n   Expires: 2026-03-13\n")
	assert.Contains(t, msg.Body, "2. Unnamed Product\n   Expires: 2026-03-13\n")
	assert.Contains(t, msg.Body, "Sent on: 2026-03-10 at 09:00:00 UTC")

	raw := string(Format(msg, now))
	assert.True(t, strings.HasPrefix(raw, "From: bot@example.com\r\nTo: me@example.com\r\n"))
	assert.Contains(t, raw, "Subject: 2 Grocery Item(s) Expiring Soon!\r\n")
	assert.Contains(t, raw, "\r\n\r\nGROCERY EXPIRY ALERT\r\n")
}

type fakeStore struct {
	products []*entity.Product
	asked    extract.Date
	err      error
}

func (f *fakeStore) ListExpiringOn(_ context.Context, day extract.Date) ([]*entity.Product, error) {
	f.asked = day
	return f.products, f.err
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	fail map[string]bool
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[msg.To[0]] {
		return errors.New("relay refused")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestJob_RunGroupsByRecipient(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day := TargetDay(now)
	store := &fakeStore{products: []*entity.Product{
		product("b@example.com", "Bread", day),
		product("a@example.com", "Apples", day),
		product("", "Cheese", day),
		product("b@example.com", "Butter", day),
	}}
	mailer := &recordingMailer{}

	rep, err := NewJob(store, mailer, "bot@example.com", "family@example.com", quietLog).Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, day, store.asked)
	assert.Equal(t, Report{Day: day, Products: 4, Sent: 3}, rep)

	require.Len(t, mailer.sent, 3)
	assert.Equal(t, []string{"a@example.com"}, mailer.sent[0].To)
	assert.Equal(t, "2 Grocery Item(s) Expiring Soon!", mailer.sent[1].Subject)
	assert.Equal(t, []string{"family@example.com"}, mailer.sent[2].To)
}

func TestJob_RunEdgeCases(t *testing.T) {
	now := time.Now()
	mailer := &recordingMailer{fail: map[string]bool{"a@example.com": true}}

	rep, err := NewJob(&fakeStore{}, mailer, "", "", quietLog).Run(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, rep.Sent)
	assert.Empty(t, mailer.sent)

	store := &fakeStore{products: []*entity.Product{
		product("a@example.com", "Apples", TargetDay(now)),
		product("", "Orphan", TargetDay(now)),
		product("c@example.com", "Carrots", TargetDay(now)),
	}}
	rep, err = NewJob(store, mailer, "", "", quietLog).Run(context.Background(), now)
	assert.Error(t, err)
	assert.Equal(t, 1, rep.Sent)
	assert.Equal(t, 1, rep.Skipped)

	_, err = NewJob(&fakeStore{err: common.ErrDatabase}, mailer, "", "", quietLog).Run(context.Background(), now)
	assert.ErrorIs(t, err, common.ErrDatabase)
}

type countingRunner struct {
	mu   sync.Mutex
	runs []time.Time
}

func (c *countingRunner) Run(_ context.Context, now time.Time) (Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = append(c.runs, now)
	return Report{Day: TargetDay(now)}, nil
}

func (c *countingRunner) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.runs)
}

func TestScheduler_Due(t *testing.T) {
	s := NewScheduler(&countingRunner{}, 9*time.Hour, quietLog)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.False(t, s.Due(day.Add(8*time.Hour+59*time.Minute)))
	assert.True(t, s.Due(day.Add(9*time.Hour)))
	s.lastRun = extract.DateOf(day)
	assert.False(t, s.Due(day.Add(23*time.Hour)))
	assert.True(t, s.Due(day.Add(33*time.Hour)))
}

func TestScheduler_RunsOncePerDay(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 9*time.Hour, quietLog)
	s.tick = 5 * time.Millisecond

	var mu sync.Mutex
	clock := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	advance := func(d time.Duration) {
		mu.Lock()
		clock = clock.Add(d)
		mu.Unlock()
	}

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, runner.count())

	advance(time.Hour)
	require.Eventually(t, func() bool { return runner.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, runner.count())

	advance(24 * time.Hour)
	require.Eventually(t, func() bool { return runner.count() == 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
	require.NoError(t, <-done)
}

func TestScheduler_StartAfterTriggerWaitsForTomorrow(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 9*time.Hour, quietLog)
	s.tick = 5 * time.Millisecond
	s.now = func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Start(ctx), context.DeadlineExceeded)
	assert.Zero(t, runner.count())
}

func TestScheduler_RestartsAfterContextCancel(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 9*time.Hour, quietLog)
	s.tick = 5 * time.Millisecond
	s.now = func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.running
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	s.mu.Lock()
	assert.False(t, s.running)
	s.mu.Unlock()
	assert.NotPanics(t, s.Stop)

	go func() { done <- s.Start(context.Background()) }()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.running
	}, time.Second, 5*time.Millisecond)
	s.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("restarted scheduler did not stop")
	}
}

// fakeSMTP speaks just enough SMTP for one plain-text delivery.
func fakeSMTP(t *testing.T) (addr string, received <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

		reply("220 localhost ESMTP")
		var data strings.Builder
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"):
				reply("250-localhost")
				reply("250 AUTH PLAIN")
			case strings.HasPrefix(cmd, "AUTH"):
				reply("235 2.7.0 Authentication successful")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				reply("250 OK")
			case cmd == "DATA":
				reply("354 go ahead")
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					data.WriteString(l)
				}
				reply("250 queued")
				out <- data.String()
			case cmd == "QUIT":
				reply("221 bye")
				return
			default:
				reply("250 OK")
			}
		}
	}()
	return ln.Addr().String(), out
}

func TestSMTPMailer_Send(t *testing.T) {
	addr, received := fakeSMTP(t)
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	m := NewSMTPMailer(common.NotifyConfig{SMTPHost: host, SMTPPort: port, From: "bot@example.com", Password: "pw"}, quietLog)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := Message{From: "bot@example.com", To: []string{"me@example.com"}, Subject: Subject(1), Body: "1. Milk\n   Expires: 2026-03-13"}
	require.NoError(t, m.Send(ctx, msg))

	select {
	case data := <-received:
		assert.Contains(t, data, "Subject: 1 Grocery Item(s) Expiring Soon!\r\n")
		assert.Contains(t, data, "1. Milk\r\n   Expires: 2026-03-13\r\n")
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
}

func TestNewMailer(t *testing.T) {
	assert.IsType(t, &LogMailer{}, NewMailer(common.NotifyConfig{}, quietLog))
	assert.IsType(t, &SMTPMailer{}, NewMailer(common.NotifyConfig{SMTPHost: "smtp.test", SMTPPort: 587}, quietLog))
	assert.NoError(t, NewLogMailer(quietLog).Send(context.Background(), Message{To: []string{"x@y.z"}}))
}
