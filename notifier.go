package authcore

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

type notifyKind uint8

const (
	notifyEmail notifyKind = iota
	notifySMS
)

type notifyJob struct {
	kind    notifyKind
	to      string
	subject string
	body    string
}

// notifier delivers verification email and SMS off the request path. Send
// failures are logged and swallowed: signup and login must not fail because
// a provider is down, the user can request a resend.
type notifier struct {
	cfg       NotifyConfig
	email     EmailSender
	sms       SMSSender
	logger    *slog.Logger
	ch        chan notifyJob
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newNotifier(cfg NotifyConfig, email EmailSender, sms SMSSender, logger *slog.Logger) *notifier {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	n := &notifier{
		cfg:    cfg,
		email:  email,
		sms:    sms,
		logger: logger,
		ch:     make(chan notifyJob, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	n.wg.Add(1)
	go n.run()

	return n
}

func (n *notifier) run() {
	defer n.wg.Done()

	for {
		select {
		case job := <-n.ch:
			n.deliver(job)
		case <-n.done:
			for {
				select {
				case job := <-n.ch:
					n.deliver(job)
				default:
					return
				}
			}
		}
	}
}

func (n *notifier) deliver(job notifyJob) {
	ctx := context.Background()
	if n.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.SendTimeout)
		defer cancel()
	}

	var err error
	switch job.kind {
	case notifyEmail:
		if n.email == nil {
			return
		}
		err = n.email.SendEmail(ctx, job.to, job.subject, job.body)
	case notifySMS:
		if n.sms == nil {
			return
		}
		err = n.sms.SendSMS(ctx, job.to, job.body)
	}
	if err != nil {
		n.logger.Error("notification delivery failed",
			slog.Int("kind", int(job.kind)),
			slog.String("error", err.Error()),
		)
	}
}

func (n *notifier) enqueue(job notifyJob) {
	if n == nil || n.closed.Load() {
		return
	}
	select {
	case n.ch <- job:
	case <-n.done:
	default:
		n.dropped.Add(1)
		n.logger.Warn("notification queue full, dropping", slog.Int("kind", int(job.kind)))
	}
}

func (n *notifier) SendEmail(to, subject, body string) {
	n.enqueue(notifyJob{kind: notifyEmail, to: to, subject: subject, body: body})
}

func (n *notifier) SendSMS(to, body string) {
	n.enqueue(notifyJob{kind: notifySMS, to: to, body: body})
}

func (n *notifier) Dropped() uint64 {
	if n == nil {
		return 0
	}
	return n.dropped.Load()
}

func (n *notifier) Close() {
	if n == nil {
		return
	}
	n.closeOnce.Do(func() {
		n.closed.Store(true)
		close(n.done)
		n.wg.Wait()
	})
}
