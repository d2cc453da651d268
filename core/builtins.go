package core

import (
	"context"
	"strconv"
	"strings"

	"github.com/Comcast/chatter/match"
	"github.com/Comcast/chatter/settings"
	"github.com/Comcast/chatter/template"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// builtin is a tag that the Engine knows natively.
type builtin int

const (
	tagGet builtin = iota + 1
	tagSet
	tagBot
	tagStar
	tagThatStar
	tagTopicStar
	tagEmotionStar
	tagThat
	tagInput
	tagThink
	tagSrai
	tagSr
	tagRandom
	tagCondition
	tagFormal
	tagSentence
	tagUppercase
	tagLowercase
	tagGender
	tagPerson
	tagPerson2
	tagPiglatin
	tagSize
	tagVersion
	tagDate
	tagGossip
	tagLearn
	tagScript
	tagJavascript
	tagId
)

var builtins = map[string]builtin{
	"get":         tagGet,
	"set":         tagSet,
	"bot":         tagBot,
	"presence":    tagBot,
	"star":        tagStar,
	"thatstar":    tagThatStar,
	"topicstar":   tagTopicStar,
	"emotionstar": tagEmotionStar,
	"that":        tagThat,
	"input":       tagInput,
	"think":       tagThink,
	"srai":        tagSrai,
	"sr":          tagSr,
	"random":      tagRandom,
	"condition":   tagCondition,
	"formal":      tagFormal,
	"sentence":    tagSentence,
	"uppercase":   tagUppercase,
	"lowercase":   tagLowercase,
	"gender":      tagGender,
	"person":      tagPerson,
	"person2":     tagPerson2,
	"piglatin":    tagPiglatin,
	"size":        tagSize,
	"version":     tagVersion,
	"date":        tagDate,
	"gossip":      tagGossip,
	"learn":       tagLearn,
	"script":      tagScript,
	"javascript":  tagJavascript,
	"id":          tagId,
}

// Builtins returns the names of the built-in tags.
func Builtins() []string {
	acc := make([]string, 0, len(builtins))
	for name := range builtins {
		acc = append(acc, name)
	}
	return acc
}

func (b builtin) order() Order {
	switch b {
	case tagRandom, tagCondition:
		return HandlerFirst
	}
	return EagerChildren
}

var (
	starNode = template.NewElement("star", nil)
	srNode   = template.NewElement("srai", nil, starNode)
)

// builtin renders a built-in tag.
func (c *Call) builtin(b builtin, n *template.Node) string {
	e := c.Engine
	switch b {
	case tagGet:
		return c.Session.Predicates.Get(n.AttrOr("name", ""))

	case tagSet:
		name := n.AttrOr("name", "")
		if name == "" {
			e.logger.Warn("set without a name", zap.String("markup", n.OuterXML()))
			return ""
		}
		value := strings.TrimSpace(n.InnerText())
		if value == "" {
			c.Session.Predicates.Remove(name)
			return ""
		}
		c.Session.Predicates.Set(name, value)
		return value

	case tagBot:
		return e.bot.Get(n.AttrOr("name", ""))

	case tagStar:
		return c.star("star", match.Input, n)
	case tagThatStar:
		return c.star("thatstar", match.That, n)
	case tagTopicStar:
		return c.star("topicstar", match.Topic, n)
	case tagEmotionStar:
		return c.star("emotionstar", match.Emotion, n)

	case tagThat:
		return c.history("that", n, c.Session.ThatSentence)
	case tagInput:
		return c.history("input", n, c.Session.InputSentence)

	case tagThink:
		return ""

	case tagSrai:
		return c.srai(n.InnerText())
	case tagSr:
		return c.Process(srNode)

	case tagRandom:
		return c.random(n)
	case tagCondition:
		return c.condition(n)

	case tagFormal:
		return cases.Title(e.lang).String(c.atomic(n))
	case tagSentence:
		return e.sentence(c.atomic(n))
	case tagUppercase:
		return cases.Upper(e.lang).String(c.atomic(n))
	case tagLowercase:
		return cases.Lower(e.lang).String(c.atomic(n))

	case tagGender:
		return e.gender.Substitute(c.atomic(n))
	case tagPerson:
		return e.person.Substitute(c.atomic(n))
	case tagPerson2:
		return e.person2.Substitute(c.atomic(n))

	case tagPiglatin:
		return e.sentence(piglatin(c.atomic(n)))

	case tagSize:
		return strconv.Itoa(e.graph.Size())
	case tagVersion:
		return e.conf.Version
	case tagDate:
		return e.date(n.AttrOr("format", ""))
	case tagId:
		return c.Session.Id

	case tagGossip:
		e.logger.Info("gossip",
			zap.String("session", c.Session.Id),
			zap.String("text", strings.TrimSpace(n.InnerText())))
		return ""

	case tagLearn:
		c.learn(strings.TrimSpace(n.InnerText()))
		return ""

	case tagScript:
		return c.script(n.AttrOr("language", "javascript"), n.InnerText())
	case tagJavascript:
		return c.script("javascript", n.InnerText())
	}

	return ""
}

// atomic returns the node's text or, if the node has no content, the
// first input capture.
func (c *Call) atomic(n *template.Node) string {
	if !n.HasChildren() {
		return c.Process(starNode)
	}
	return n.InnerText()
}

func (c *Call) malformed(tag, index string) {
	c.Engine.logger.Warn("malformed index",
		zap.Error(&MalformedIndex{Tag: tag, Index: index}),
		zap.String("session", c.Session.Id))
}

func (c *Call) star(tag string, state match.State, n *template.Node) string {
	index := n.AttrOr("index", "1")
	i, err := strconv.Atoi(strings.TrimSpace(index))
	stars := c.Query.Stars(state)
	if err != nil || i < 1 || len(stars) < i {
		c.malformed(tag, index)
		return ""
	}
	return stars[i-1]
}

// history handles "that" and "input", whose index is "n" or "n,m".
func (c *Call) history(tag string, n *template.Node, get func(n, m int) (string, bool)) string {
	index := n.AttrOr("index", "1")
	parts := strings.Split(index, ",")
	if 2 < len(parts) {
		c.malformed(tag, index)
		return ""
	}
	turns, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		c.malformed(tag, index)
		return ""
	}
	m := 1
	if len(parts) == 2 {
		if m, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
			c.malformed(tag, index)
			return ""
		}
	}
	s, ok := get(turns, m)
	if !ok {
		c.malformed(tag, index)
		return ""
	}
	return s
}

// srai runs a sub-turn with the given input.
func (c *Call) srai(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	return c.Engine.Respond(c.Request.child(input)).Output()
}

func items(n *template.Node) []*template.Node {
	acc := make([]*template.Node, 0, len(n.Children))
	for _, e := range n.Elements() {
		if strings.EqualFold(e.Name, "li") {
			acc = append(acc, e)
		}
	}
	return acc
}

func (c *Call) random(n *template.Node) string {
	lis := items(n)
	if len(lis) == 0 {
		return ""
	}
	return lis[c.Engine.intn(len(lis))].InnerXML()
}

// condition chooses markup to render.
//
// With name and value attributes, the contents are chosen if the
// named predicate matches the value.  With only a name, the first
// list item whose value matches (or that has no attributes) is
// chosen.  With no attributes, each list item names its own
// predicate.
func (c *Call) condition(n *template.Node) string {
	var (
		e               = c.Engine
		preds           = c.Session.Predicates
		name, hasName   = n.Attr("name")
		value, hasValue = n.Attr("value")
	)

	switch {
	case hasName && hasValue:
		if e.matches(preds.Get(name), value) {
			return n.InnerXML()
		}
		return ""

	case hasName:
		for _, li := range items(n) {
			if v, have := li.Attr("value"); have {
				if e.matches(preds.Get(name), v) {
					return li.InnerXML()
				}
				continue
			}
			if len(li.Attrs) == 0 {
				return li.InnerXML()
			}
		}
		return ""

	default:
		for _, li := range items(n) {
			ln, hasN := li.Attr("name")
			lv, hasV := li.Attr("value")
			if hasN && hasV {
				if e.matches(preds.Get(ln), lv) {
					return li.InnerXML()
				}
				continue
			}
			if len(li.Attrs) == 0 {
				return li.InnerXML()
			}
		}
		return ""
	}
}

func (c *Call) learn(filename string) {
	if filename == "" {
		return
	}
	n, err := c.Engine.Learn(c.Request.Context(), filename)
	if err != nil {
		c.Engine.logger.Warn("learn failed",
			zap.String("filename", filename),
			zap.Error(err))
		return
	}
	c.Engine.logger.Info("learned",
		zap.String("filename", filename),
		zap.Int("categories", n))
}

func asMap(d *settings.Dictionary) map[string]interface{} {
	acc := make(map[string]interface{}, d.Len())
	for _, p := range d.Pairs() {
		acc[p.Key] = p.Value
	}
	return acc
}

func stars(ss []string) []interface{} {
	acc := make([]interface{}, len(ss))
	for i, s := range ss {
		acc[i] = s
	}
	return acc
}

// script runs code with an interpreter for the given language.
//
// The script's environment has the session's predicates, the bot
// properties, the captures, and get/set functions for predicates.
// The script is interrupted if the turn's deadline passes.
func (c *Call) script(lang, code string) string {
	e := c.Engine
	interpreter, have := e.interpreters[strings.ToLower(lang)]
	if !have {
		e.logger.Warn("script not implemented",
			zap.String("language", lang),
			zap.Error(InterpreterNotFound))
		return ""
	}

	ctx, cancel := context.WithDeadline(c.Request.Context(), c.Request.Deadline())
	defer cancel()

	preds := c.Session.Predicates
	env := map[string]interface{}{
		"session":    c.Session.Id,
		"input":      c.Request.Raw,
		"predicates": asMap(preds),
		"bot":        asMap(e.bot),
		"star":       stars(c.Query.Stars(match.Input)),
		"thatstar":   stars(c.Query.Stars(match.That)),
		"topicstar":  stars(c.Query.Stars(match.Topic)),
		"get": func(name string) string {
			return preds.Get(name)
		},
		"set": func(name, value string) string {
			preds.Set(name, value)
			return value
		},
	}

	out, err := interpreter.Exec(ctx, code, env)
	if err != nil {
		e.logger.Warn("script failed",
			zap.String("language", lang),
			zap.Error(err))
		return ""
	}
	return out
}
