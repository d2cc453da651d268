package core

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/chatter/config"
	"github.com/Comcast/chatter/loader"
	"github.com/Comcast/chatter/match"
	"github.com/Comcast/chatter/mood"
	"github.com/Comcast/chatter/normalize"
	"github.com/Comcast/chatter/settings"
	"github.com/Comcast/chatter/storage"
	"github.com/Comcast/chatter/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Normalizer turns raw input into sentences and sentences into path
// segments.
type Normalizer interface {
	// Sentences splits raw input.
	Sentences(raw string) []string

	// Normalize makes a path segment from a sentence.
	Normalize(sentence string) string
}

// Learner adds the categories in a file to a corpus.
type Learner interface {
	Load(ctx context.Context, filename string, into match.Adder) (int, error)
}

// ScriptInterpreter runs the code in a script tag.
type ScriptInterpreter interface {
	// Exec runs the code with the given environment and returns
	// the script's result as text.
	Exec(ctx context.Context, code string, env map[string]interface{}) (string, error)
}

// Interpreters maps a (lower-case) language name to its interpreter.
type Interpreters map[string]ScriptInterpreter

// Engine answers input using a corpus of categories.
type Engine struct {
	conf   *config.Config
	logger *zap.Logger
	graph  *match.Graphmaster
	lang   language.Tag

	bot        *settings.Dictionary
	predicates *settings.Dictionary
	gender     *settings.Dictionary
	person     *settings.Dictionary
	person2    *settings.Dictionary

	normalizer   Normalizer
	learner      Learner
	storage      storage.Storage
	analyzer     *mood.Analyzer
	interpreters Interpreters
	now          func() time.Time

	tagsMu sync.RWMutex
	tags   map[string]TagSpec

	randMu sync.Mutex
	rand   *rand.Rand

	sessionsMu sync.Mutex
	sessions   map[string]*Session

	// parsed caches parsed templates by source.
	parsed sync.Map

	// conditions caches compiled condition values.
	conditions sync.Map
}

// Option configures an Engine.
type Option func(e *Engine)

// WithLogger sets the logger.  The default logs nothing.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n Normalizer) Option {
	return func(e *Engine) {
		e.normalizer = n
	}
}

// WithLearner replaces the default loader.
func WithLearner(l Learner) Option {
	return func(e *Engine) {
		e.learner = l
	}
}

// WithStorage persists sessions.  The Storage should already be open.
func WithStorage(s storage.Storage) Option {
	return func(e *Engine) {
		e.storage = s
	}
}

// WithEmotions replaces the default mood analyzer.  A nil analyzer
// disables emotions, and the emotion segment of every path is "*".
func WithEmotions(a *mood.Analyzer) Option {
	return func(e *Engine) {
		e.analyzer = a
	}
}

// WithInterpreters sets the interpreters for script tags.  Without
// any, script tags render as empty text.
func WithInterpreters(is Interpreters) Option {
	return func(e *Engine) {
		e.interpreters = is
	}
}

// WithRandom sets the source for random choices.
func WithRandom(r *rand.Rand) Option {
	return func(e *Engine) {
		e.rand = r
	}
}

// WithClock sets the function that gives the current time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New makes an Engine with an empty corpus.
//
// A nil conf uses config.Default().
func New(conf *config.Config, opts ...Option) (*Engine, error) {
	if conf == nil {
		conf = config.Default()
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		conf:       conf,
		logger:     zap.NewNop(),
		graph:      match.NewGraphmaster(),
		bot:        conf.BotSettings(),
		predicates: config.Table(conf.Predicates),
		gender:     config.Table(conf.Gender),
		person:     config.Table(conf.Person),
		person2:    config.Table(conf.Person2),
		storage:    &storage.NoopStorage{},
		analyzer:   mood.NewAnalyzer(),
		now:        time.Now,
		tags:       make(map[string]TagSpec),
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions:   make(map[string]*Session),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With(util.Origin("engine"))

	lang, err := language.Parse(conf.Locale)
	if err != nil {
		e.logger.Warn("bad locale", zap.String("locale", conf.Locale), zap.Error(err))
		lang = language.AmericanEnglish
	}
	e.lang = lang

	if e.normalizer == nil {
		e.normalizer = normalize.New(conf.Splitters, config.Table(conf.Substitutions))
	}
	if e.learner == nil {
		e.learner = loader.New(e.logger)
	}

	return e, nil
}

// Config returns the Engine's configuration.
func (e *Engine) Config() *config.Config {
	return e.conf
}

// Graphmaster returns the Engine's corpus.
func (e *Engine) Graphmaster() *match.Graphmaster {
	return e.graph
}

// Logger returns the Engine's logger.
func (e *Engine) Logger() *zap.Logger {
	return e.logger
}

// AddCategory adds a category.
//
// The path can omit trailing segments, which are then "*".  "HELLO"
// is stored as "HELLO <THAT> * <TOPIC> * <EMOTION> *".
func (e *Engine) AddCategory(path, template, source string) error {
	return e.graph.Add(match.CompletePath(path), template, source)
}

// Learn adds the categories in the named file or directory.
func (e *Engine) Learn(ctx context.Context, filename string) (int, error) {
	if e.learner == nil {
		return 0, NoLearner
	}
	n, err := e.learner.Load(ctx, filename, e.graph)
	if err != nil {
		return n, fmt.Errorf("learning %s: %w", filename, err)
	}
	return n, nil
}

// NewRequest makes a top-level Request that starts now.
func (e *Engine) NewRequest(ctx context.Context, raw string, s *Session) *Request {
	return &Request{
		Raw:       raw,
		StartedOn: e.now(),
		Session:   s,
		ctx:       ctx,
		timeout:   e.conf.Timeout,
		now:       e.now,
		logger:    e.logger,
	}
}

// segment normalizes text for use as a path segment.  Empty text
// becomes "*".
func (e *Engine) segment(s string) string {
	if s = e.normalizer.Normalize(s); s == "" {
		return match.Star
	}
	return s
}

// that returns the path segment for the previous output: its last
// sentence.
func (e *Engine) that(s *Session) string {
	ss := e.normalizer.Sentences(s.That())
	if len(ss) == 0 {
		return match.Star
	}
	return e.segment(ss[len(ss)-1])
}

func (e *Engine) emotion(s *Session) string {
	if e.analyzer == nil {
		return match.Star
	}
	return string(s.Mood.Current())
}

// Path makes the complete match path for a normalized input sentence.
func Path(input, that, topic, emotion string) string {
	return strings.Join([]string{
		input,
		match.ThatToken, that,
		match.TopicToken, topic,
		match.EmotionToken, emotion,
	}, " ")
}

// Respond runs one turn.  The Request's session should be locked by
// the caller.
//
// Respond handles srai sub-turns, too, which share the top-level
// deadline and are limited in depth.
func (e *Engine) Respond(req *Request) *Result {
	var (
		then = e.now()
		res  = &Result{
			Request: req,
		}
	)
	defer func() {
		res.Duration = e.now().Sub(then)
	}()

	if req.Expired() {
		return res
	}

	if e.conf.MaxDepth < req.Depth {
		e.logger.Warn("srai too deep",
			zap.Error(&TooDeep{Depth: req.Depth, Input: req.Raw}))
		return res
	}

	var (
		s       = req.Session
		that    = e.that(s)
		topic   = e.segment(s.Topic())
		emotion = e.emotion(s)
	)

	for _, sentence := range e.normalizer.Sentences(req.Raw) {
		input := e.normalizer.Normalize(sentence)
		if input == "" {
			continue
		}
		res.InputSentences = append(res.InputSentences, sentence)
		res.Paths = append(res.Paths, Path(input, that, topic, emotion))
	}

	for _, path := range res.Paths {
		q := match.NewQuery(path)
		template := e.graph.Evaluate(path, q, req)
		res.Queries = append(res.Queries, q)

		if template == "" {
			if !req.TimedOut() {
				e.logger.Warn("no match",
					zap.String("path", path),
					zap.String("session", s.Id))
			}
			res.OutputSentences = append(res.OutputSentences, "")
			continue
		}

		out := e.render(template, &Call{
			Engine:  e,
			Session: s,
			Query:   q,
			Request: req,
			Result:  res,
		})
		res.OutputSentences = append(res.OutputSentences, strings.TrimSpace(out))
	}

	return res
}

// Chat runs a complete turn for the given session.
//
// An empty session id gets a new random id, which is in the Reply.
// If the turn timed out, the Reply's Output is the configured timeout
// message.  The session is persisted after the turn; a storage error
// is returned along with the Reply.
func (e *Engine) Chat(ctx context.Context, raw, sessionId string) (*Reply, error) {
	if sessionId == "" {
		sessionId = uuid.New().String()
	}

	s, err := e.Session(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	s.Lock()
	defer s.Unlock()

	if e.analyzer != nil {
		s.Mood.Observe(e.analyzer, raw)
	}

	req := e.NewRequest(ctx, raw, s)
	res := e.Respond(req)

	reply := &Reply{
		Output:    res.Output(),
		Matches:   res.Queries,
		Duration:  res.Duration,
		TimedOut:  req.TimedOut(),
		SessionId: s.Id,
	}
	if reply.TimedOut {
		reply.Output = e.conf.TimeoutMessage
	}

	s.remember(res)

	e.logger.Debug("chat",
		zap.String("session", s.Id),
		zap.String("input", raw),
		zap.String("output", reply.Output),
		zap.Duration("duration", reply.Duration))

	if err := e.storage.WriteSessions(ctx, []*storage.SessionState{s.state()}); err != nil {
		return reply, fmt.Errorf("writing session %s: %w", s.Id, err)
	}

	return reply, nil
}

// Session returns the session with the given id, making it (or
// restoring it from storage) if necessary.
func (e *Engine) Session(ctx context.Context, id string) (*Session, error) {
	e.sessionsMu.Lock()
	defer e.sessionsMu.Unlock()

	if s, have := e.sessions[id]; have {
		return s, nil
	}

	s := NewSession(id, e.predicates, e.conf.HistorySize)

	ss, err := e.storage.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}
	if ss != nil {
		s.restore(ss)
		e.logger.Debug("restored session", zap.String("session", id))
	}

	e.sessions[id] = s
	return s, nil
}

// Sessions returns the ids of the sessions in memory.
func (e *Engine) Sessions() []string {
	e.sessionsMu.Lock()
	acc := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		acc = append(acc, id)
	}
	e.sessionsMu.Unlock()
	sort.Strings(acc)
	return acc
}

// Snapshot returns a copy of the session's state or nil if the
// session isn't in memory.
func (e *Engine) Snapshot(id string) *storage.SessionState {
	e.sessionsMu.Lock()
	s, have := e.sessions[id]
	e.sessionsMu.Unlock()
	if !have {
		return nil
	}
	s.Lock()
	defer s.Unlock()
	return s.state()
}
