// ABOUTME: Typed read-only views over an Envelope, one per lifecycle event
// ABOUTME: Classify maps the event tag to a view; unknown tags get the Generic fallback

package hooks

// EventName identifies a lifecycle point in the host.
type EventName string

const (
	PreToolUse   EventName = "PreToolUse"
	PostToolUse  EventName = "PostToolUse"
	Notification EventName = "Notification"
	Stop         EventName = "Stop"
	SubagentStop EventName = "SubagentStop"
)

// KnownEvents lists the events with a dedicated view.
func KnownEvents() []EventName {
	return []EventName{PreToolUse, PostToolUse, Notification, Stop, SubagentStop}
}

// Event is the view a handler receives. Every implementation is read-only
// and safe to share between concurrently running handlers.
type Event interface {
	Name() EventName
	Envelope() *Envelope
	SessionID() string
	TranscriptPath() string
	Field(key string) (any, bool)
}

// base carries the accessors common to every view.
type base struct {
	env *Envelope
}

func (b base) Name() EventName { return EventName(b.env.EventName()) }

func (b base) Envelope() *Envelope { return b.env }

func (b base) SessionID() string { return b.env.SessionID() }

func (b base) TranscriptPath() string { return b.env.TranscriptPath() }

func (b base) Field(key string) (any, bool) { return b.env.Field(key) }

// toolUse carries the accessors shared by the tool-use views.
type toolUse struct {
	base
}

// ToolName returns the name of the tool being invoked, e.g. "Bash".
func (t toolUse) ToolName() string {
	name, _ := t.env.ToolName()
	return name
}

// GetInput looks up key in the tool input. The absent sentinel is
// (nil, false); a present JSON null is (nil, true).
func (t toolUse) GetInput(key string) (any, bool) {
	return t.env.Input(key)
}

// InputString returns the tool input value for key when it is a string,
// otherwise fallback.
func (t toolUse) InputString(key, fallback string) string {
	v, ok := t.env.Input(key)
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	return s
}

// MustInput returns the tool input value for key and panics with a
// *UsageError when it is absent.
func (t toolUse) MustInput(key string) any {
	v, ok := t.env.Input(key)
	if !ok {
		panic(usageErrorf("MustInput", "%s event for tool %q has no input %q", t.Name(), t.ToolName(), key))
	}
	return v
}

// ToolInput returns a copy of the complete tool input.
func (t toolUse) ToolInput() map[string]any {
	return t.env.ToolInput()
}

// PreToolUseEvent is fired before a tool runs; a block stops the tool.
type PreToolUseEvent struct {
	toolUse
}

// PostToolUseEvent is fired after a tool ran and carries its response.
type PostToolUseEvent struct {
	toolUse
}

// GetResponse looks up key in the tool response, with the same absent
// sentinel as GetInput.
func (p *PostToolUseEvent) GetResponse(key string) (any, bool) {
	return p.env.Response(key)
}

// ResponseString returns the response value for key when it is a string,
// otherwise fallback.
func (p *PostToolUseEvent) ResponseString(key, fallback string) string {
	v, ok := p.env.Response(key)
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	return s
}

// ToolResponse returns a copy of the tool response, or nil when the host
// sent none.
func (p *PostToolUseEvent) ToolResponse() map[string]any {
	return p.env.ToolResponse()
}

// Succeeded reports whether the response has no non-empty "error" field.
func (p *PostToolUseEvent) Succeeded() bool {
	return p.ResponseString("error", "") == ""
}

// NotificationEvent carries a message the host wants to surface.
type NotificationEvent struct {
	base
}

// Message returns the notification text.
func (n *NotificationEvent) Message() string { return n.env.stringField("message") }

// HasMessage reports whether the notification carries a non-empty message.
func (n *NotificationEvent) HasMessage() bool { return n.Message() != "" }

// StopEvent is fired when the main agent finishes responding.
type StopEvent struct {
	base
}

// StopHookActive reports whether the host is already continuing because of
// an earlier stop hook; handlers use it to avoid endless loops.
func (s *StopEvent) StopHookActive() bool {
	active, _ := s.env.fields["stop_hook_active"].(bool)
	return active
}

// SubagentStopEvent is fired when a subagent finishes.
type SubagentStopEvent struct {
	base
}

// StopHookActive has the same meaning as on StopEvent.
func (s *SubagentStopEvent) StopHookActive() bool {
	active, _ := s.env.fields["stop_hook_active"].(bool)
	return active
}

// GenericEvent is the fallback view for event names this package does not
// know. It exposes only the common accessors.
type GenericEvent struct {
	base
}

// Classify returns the view matching the envelope's event name, or a
// *GenericEvent for unknown names. It never fails.
func Classify(env *Envelope) Event {
	b := base{env: env}
	switch EventName(env.EventName()) {
	case PreToolUse:
		return &PreToolUseEvent{toolUse{b}}
	case PostToolUse:
		return &PostToolUseEvent{toolUse{b}}
	case Notification:
		return &NotificationEvent{b}
	case Stop:
		return &StopEvent{b}
	case SubagentStop:
		return &SubagentStopEvent{b}
	default:
		return &GenericEvent{b}
	}
}

// IsKnown reports whether name has a dedicated view.
func IsKnown(name EventName) bool {
	switch name {
	case PreToolUse, PostToolUse, Notification, Stop, SubagentStop:
		return true
	}
	return false
}

func checkEvent(op string, env *Envelope, want EventName) error {
	if env == nil {
		return usageErrorf(op, "nil envelope")
	}
	if got := EventName(env.EventName()); got != want {
		return usageErrorf(op, "envelope is a %s event, not %s", got, want)
	}
	return nil
}

// NewPreToolUse builds a PreToolUse view, failing with a *UsageError when
// the envelope belongs to another event.
func NewPreToolUse(env *Envelope) (*PreToolUseEvent, error) {
	if err := checkEvent("NewPreToolUse", env, PreToolUse); err != nil {
		return nil, err
	}
	return &PreToolUseEvent{toolUse{base{env}}}, nil
}

// NewPostToolUse builds a PostToolUse view.
func NewPostToolUse(env *Envelope) (*PostToolUseEvent, error) {
	if err := checkEvent("NewPostToolUse", env, PostToolUse); err != nil {
		return nil, err
	}
	return &PostToolUseEvent{toolUse{base{env}}}, nil
}

// NewNotification builds a Notification view.
func NewNotification(env *Envelope) (*NotificationEvent, error) {
	if err := checkEvent("NewNotification", env, Notification); err != nil {
		return nil, err
	}
	return &NotificationEvent{base{env}}, nil
}

// NewStop builds a Stop view.
func NewStop(env *Envelope) (*StopEvent, error) {
	if err := checkEvent("NewStop", env, Stop); err != nil {
		return nil, err
	}
	return &StopEvent{base{env}}, nil
}

// NewSubagentStop builds a SubagentStop view.
func NewSubagentStop(env *Envelope) (*SubagentStopEvent, error) {
	if err := checkEvent("NewSubagentStop", env, SubagentStop); err != nil {
		return nil, err
	}
	return &SubagentStopEvent{base{env}}, nil
}

// as converts ev to the view type T or returns a *UsageError naming the
// event the handler actually received.
func as[T Event](op string, ev Event, want EventName) (T, error) {
	v, ok := ev.(T)
	if !ok {
		var zero T
		got := EventName("<nil>")
		if ev != nil {
			got = ev.Name()
		}
		return zero, usageErrorf(op, "handler received a %s event, not %s", got, want)
	}
	return v, nil
}

func must[T Event](op string, ev Event, want EventName) T {
	v, err := as[T](op, ev, want)
	if err != nil {
		panic(err)
	}
	return v
}

// AsPreToolUse converts ev to its PreToolUse view.
func AsPreToolUse(ev Event) (*PreToolUseEvent, error) {
	return as[*PreToolUseEvent]("AsPreToolUse", ev, PreToolUse)
}

// AsPostToolUse converts ev to its PostToolUse view.
func AsPostToolUse(ev Event) (*PostToolUseEvent, error) {
	return as[*PostToolUseEvent]("AsPostToolUse", ev, PostToolUse)
}

// AsNotification converts ev to its Notification view.
func AsNotification(ev Event) (*NotificationEvent, error) {
	return as[*NotificationEvent]("AsNotification", ev, Notification)
}

// AsStop converts ev to its Stop view.
func AsStop(ev Event) (*StopEvent, error) {
	return as[*StopEvent]("AsStop", ev, Stop)
}

// AsSubagentStop converts ev to its SubagentStop view.
func AsSubagentStop(ev Event) (*SubagentStopEvent, error) {
	return as[*SubagentStopEvent]("AsSubagentStop", ev, SubagentStop)
}

// MustPreToolUse is AsPreToolUse that panics with a *UsageError. The Runner
// recovers the panic and exits with ExitUsageError.
func MustPreToolUse(ev Event) *PreToolUseEvent {
	return must[*PreToolUseEvent]("MustPreToolUse", ev, PreToolUse)
}

// MustPostToolUse is the panicking form of AsPostToolUse.
func MustPostToolUse(ev Event) *PostToolUseEvent {
	return must[*PostToolUseEvent]("MustPostToolUse", ev, PostToolUse)
}

// MustNotification is the panicking form of AsNotification.
func MustNotification(ev Event) *NotificationEvent {
	return must[*NotificationEvent]("MustNotification", ev, Notification)
}

// MustStop is the panicking form of AsStop.
func MustStop(ev Event) *StopEvent {
	return must[*StopEvent]("MustStop", ev, Stop)
}

// MustSubagentStop is the panicking form of AsSubagentStop.
func MustSubagentStop(ev Event) *SubagentStopEvent {
	return must[*SubagentStopEvent]("MustSubagentStop", ev, SubagentStop)
}

func (n EventName) String() string { return string(n) }
