package scalesock

import (
	"time"

	"github.com/joeycumines/scalesock/corectx"
	"github.com/joeycumines/scalesock/protocol/bus"
	"github.com/joeycumines/scalesock/protocol/pair"
	"github.com/joeycumines/scalesock/protocol/pub"
	"github.com/joeycumines/scalesock/protocol/pull"
	"github.com/joeycumines/scalesock/protocol/push"
	"github.com/joeycumines/scalesock/protocol/rep"
	"github.com/joeycumines/scalesock/protocol/req"
	"github.com/joeycumines/scalesock/protocol/respondent"
	"github.com/joeycumines/scalesock/protocol/sub"
	"github.com/joeycumines/scalesock/protocol/surveyor"
	"github.com/joeycumines/scalesock/protocol/xraw"
	"github.com/joeycumines/scalesock/socket"
	"github.com/joeycumines/scalesock/timerset"
	"github.com/joeycumines/scalesock/transport/inproc"
	"github.com/joeycumines/scalesock/worker"
)

// Option configures socket construction. The only thing worth
// overriding before a Socket exists is which inproc registry it binds
// and connects through; everything else (LINGER, SNDBUF, ...) is a
// runtime option set through Socket.SetOption after construction.
type Option func(*config)

type config struct {
	reg *inproc.Registry
}

// WithRegistry binds/connects the new Socket through reg instead of the
// process-wide default registry. Primarily for test isolation, so
// concurrent tests don't collide on inproc:// names.
func WithRegistry(reg *inproc.Registry) Option {
	return func(c *config) { c.reg = reg }
}

func resolveOptions(opts []Option) config {
	cfg := config{reg: inproc.DefaultRegistry()}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// timerFunc adapts a plain fire callback to worker.TimerHandler, letting
// protocol cores that need one-shot timers (REQ's resend, SURVEYOR's
// deadline) schedule against the owning worker without depending on the
// worker package themselves.
type timerFunc func()

func (f timerFunc) HandleTimer(timerset.Tag) { f() }

// schedulerFor builds the `func(d, fire) cancel` closure req.New and
// surveyor.New expect, wired to w's timer set.
func schedulerFor(w *worker.Worker) func(time.Duration, func()) func() {
	return func(d time.Duration, fire func()) func() {
		tag := w.ScheduleTimer(d, timerFunc(fire))
		return func() { w.CancelTimer(tag) }
	}
}

// NewPairSocket constructs a PAIR socket: exactly one peer, messages
// passed through verbatim.
func NewPairSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	cfg := resolveOptions(opts)
	w := ctx.Pool.ChooseWorker()
	inner := socket.New(w, pair.New(), cfg.reg)
	return newSocket(ctx, inner, "PAIR")
}

// NewPushSocket constructs a PUSH socket: load-balanced send, never
// receives.
func NewPushSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	cfg := resolveOptions(opts)
	w := ctx.Pool.ChooseWorker()
	inner := socket.New(w, push.New(), cfg.reg)
	return newSocket(ctx, inner, "PUSH")
}

// NewPullSocket constructs a PULL socket: fair-queued receive, never
// sends.
func NewPullSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	cfg := resolveOptions(opts)
	w := ctx.Pool.ChooseWorker()
	inner := socket.New(w, pull.New(), cfg.reg)
	return newSocket(ctx, inner, "PULL")
}

// NewPubSocket constructs a PUB socket: broadcast send, never receives.
func NewPubSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	cfg := resolveOptions(opts)
	w := ctx.Pool.ChooseWorker()
	inner := socket.New(w, pub.New(), cfg.reg)
	return newSocket(ctx, inner, "PUB")
}

// NewSubSocket constructs a SUB socket: matches nothing until
// Socket.SetOption(sub.OptSubscribe, prefix) is called.
func NewSubSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	cfg := resolveOptions(opts)
	w := ctx.Pool.ChooseWorker()
	inner := socket.New(w, sub.New(), cfg.reg)
	return newSocket(ctx, inner, "SUB")
}

// NewReqSocket constructs a REQ socket, wiring its resend timer to the
// socket's own worker.
func NewReqSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	cfg := resolveOptions(opts)
	w := ctx.Pool.ChooseWorker()
	inner := socket.New(w, req.New(schedulerFor(w)), cfg.reg)
	return newSocket(ctx, inner, "REQ")
}

// NewRepSocket constructs a REP socket: request header save/restore
// around each receive/send pair.
func NewRepSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	cfg := resolveOptions(opts)
	w := ctx.Pool.ChooseWorker()
	inner := socket.New(w, rep.New(), cfg.reg)
	return newSocket(ctx, inner, "REP")
}

// NewSurveyorSocket constructs a SURVEYOR socket, wiring its
// collection-deadline timer to the socket's own worker.
func NewSurveyorSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	cfg := resolveOptions(opts)
	w := ctx.Pool.ChooseWorker()
	inner := socket.New(w, surveyor.New(schedulerFor(w)), cfg.reg)
	return newSocket(ctx, inner, "SURVEYOR")
}

// NewRespondentSocket constructs a RESPONDENT socket: symmetric to
// SURVEYOR/REP.
func NewRespondentSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	cfg := resolveOptions(opts)
	w := ctx.Pool.ChooseWorker()
	inner := socket.New(w, respondent.New(), cfg.reg)
	return newSocket(ctx, inner, "RESPONDENT")
}

// NewBusSocket constructs a BUS socket: forwards each message to every
// other connected pipe, bounded by the MAXTTL option.
func NewBusSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	cfg := resolveOptions(opts)
	w := ctx.Pool.ChooseWorker()
	inner := socket.New(w, bus.New(), cfg.reg)
	return newSocket(ctx, inner, "BUS")
}

// NewXPairSocket, NewXPushSocket, ... construct the raw X-variants: the
// envelope is passed through untouched instead of the tagging/stripping
// the non-X pattern performs.
func NewXPairSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	return newXSocket(ctx, xraw.NewXPair(), "XPAIR", opts)
}

func NewXPushSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	return newXSocket(ctx, xraw.NewXPush(), "XPUSH", opts)
}

func NewXPullSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	return newXSocket(ctx, xraw.NewXPull(), "XPULL", opts)
}

func NewXPubSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	return newXSocket(ctx, xraw.NewXPub(), "XPUB", opts)
}

func NewXSubSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	return newXSocket(ctx, xraw.NewXSub(), "XSUB", opts)
}

func NewXReqSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	return newXSocket(ctx, xraw.NewXReq(), "XREQ", opts)
}

func NewXRepSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	return newXSocket(ctx, xraw.NewXRep(), "XREP", opts)
}

func NewXSurveyorSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	return newXSocket(ctx, xraw.NewXSurveyor(), "XSURVEYOR", opts)
}

func NewXRespondentSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	return newXSocket(ctx, xraw.NewXRespondent(), "XRESPONDENT", opts)
}

func NewXBusSocket(ctx *corectx.Context, opts ...Option) (*Socket, error) {
	return newXSocket(ctx, xraw.NewXBus(), "XBUS", opts)
}

func newXSocket(ctx *corectx.Context, core *xraw.Core, proto string, opts []Option) (*Socket, error) {
	cfg := resolveOptions(opts)
	w := ctx.Pool.ChooseWorker()
	inner := socket.New(w, core, cfg.reg)
	return newSocket(ctx, inner, proto)
}
