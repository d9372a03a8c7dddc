package debug

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// maxExpressionLen rejects pathological inputs before parsing; the
// recursive parser's depth is bounded by expression length.
const maxExpressionLen = 1024

// Evaluate runs an expression in the context of a suspended frame.
//
// The grammar is deliberately narrow:
//
//	expr    := literal | 'this' | name | chain
//	literal := 'null' | 'true' | 'false' | string | integer | decimal | char
//	chain   := primary ('.' field | '.' call)*
//	call    := name '(' [args] ')'
//
// A bare name resolves as visible local, then field on the frame's
// `this`. String arguments starting with '@' are object handles.
func (s *Session) Evaluate(threadID int64, frameIndex int, expression string) (jdi.Value, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, errors.MissingParameter("expression", "Provide the expression to evaluate.")
	}
	if len(expression) > maxExpressionLen {
		return nil, errors.InvalidExpression(expression[:40]+"...",
			fmt.Sprintf("expression longer than %d bytes", maxExpressionLen))
	}

	target, err := s.Target()
	if err != nil {
		return nil, err
	}
	thread, frame, err := s.FrameAt(threadID, frameIndex)
	if err != nil {
		return nil, err
	}

	ev := &evaluator{session: s, target: target, thread: thread, frame: frame, input: expression}
	val, err := ev.parseExpr()
	if err != nil {
		return nil, err
	}
	ev.skipSpace()
	if ev.pos < len(ev.input) {
		return nil, errors.InvalidExpression(expression, "unexpected trailing input: "+ev.input[ev.pos:])
	}
	return val, nil
}

// EvaluateWatch re-evaluates one stored watch expression and memoises the
// outcome.
func (s *Session) EvaluateWatch(id string, threadID int64, frameIndex int) *WatchExpression {
	w := s.Watches.Get(id)
	if w == nil {
		return nil
	}
	val, err := s.Evaluate(threadID, frameIndex, w.Expression)
	if err != nil {
		s.Watches.SetError(id, errors.FromError(err).Message)
	} else {
		s.Watches.SetValue(id, valueToBeText(val))
	}
	return s.Watches.Get(id)
}

// EvaluateAllWatches re-evaluates every stored watch against a frame.
func (s *Session) EvaluateAllWatches(threadID int64, frameIndex int) []*WatchExpression {
	all := s.Watches.All()
	out := make([]*WatchExpression, 0, len(all))
	for _, w := range all {
		out = append(out, s.EvaluateWatch(w.ID, threadID, frameIndex))
	}
	return out
}

// evaluator is a single-use recursive-descent parser-evaluator over one
// expression string.
type evaluator struct {
	session *Session
	target  jdi.Target
	thread  jdi.ThreadRef
	frame   jdi.FrameRef
	input   string
	pos     int
}

func (ev *evaluator) parseExpr() (jdi.Value, error) {
	base, baseName, err := ev.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		ev.skipSpace()
		if !ev.consume('.') {
			return base, nil
		}
		name, err := ev.parseIdent()
		if err != nil {
			return nil, err
		}
		ev.skipSpace()
		if ev.peek() == '(' {
			base, err = ev.invoke(base, baseName, name)
		} else {
			base, err = ev.readField(base, baseName, name)
		}
		if err != nil {
			return nil, err
		}
		baseName = name
	}
}

// parsePrimary handles literals, 'this', bare names and calls on the
// implicit `this`. The returned name describes the value for error text.
func (ev *evaluator) parsePrimary() (jdi.Value, string, error) {
	ev.skipSpace()
	if ev.pos >= len(ev.input) {
		return nil, "", errors.InvalidExpression(ev.input, "empty expression")
	}

	switch c := ev.peek(); {
	case c == '"':
		text, err := ev.parseString()
		if err != nil {
			return nil, "", err
		}
		v, err := ev.target.MirrorString(text)
		if err != nil {
			return nil, "", errors.Internal(err)
		}
		return v, "string literal", nil

	case c == '\'':
		r, err := ev.parseChar()
		if err != nil {
			return nil, "", err
		}
		return ev.target.MirrorChar(r), "char literal", nil

	case c >= '0' && c <= '9', c == '-':
		return ev.parseNumber()
	}

	name, err := ev.parseIdent()
	if err != nil {
		return nil, "", err
	}

	switch name {
	case "null":
		return nil, "null", nil
	case "true":
		return ev.target.MirrorBool(true), "true", nil
	case "false":
		return ev.target.MirrorBool(false), "false", nil
	case "this":
		this := ev.frame.ThisObject()
		if this == nil {
			return nil, "", errors.InvalidExpression(ev.input, "no 'this' in a static context")
		}
		return this, "this", nil
	}

	ev.skipSpace()
	if ev.peek() == '(' {
		// A bare call targets the frame's `this`.
		this := ev.frame.ThisObject()
		if this == nil {
			return nil, "", errors.InvalidExpression(ev.input, "cannot call '"+name+"' without an object context")
		}
		v, err := ev.invoke(this, "this", name)
		return v, name, err
	}

	v, err := ev.resolveName(name)
	return v, name, err
}

// resolveName looks a bare name up as a visible local, then as a field on
// the frame's `this`.
func (ev *evaluator) resolveName(name string) (jdi.Value, error) {
	v, err := ev.frame.VariableByName(name)
	if err != nil && err != jdi.ErrAbsentInformation {
		return nil, errors.Internal(err)
	}
	if v != nil {
		val, err := ev.frame.GetValue(v)
		if err != nil {
			return nil, errors.Internal(err)
		}
		return val, nil
	}

	if this := ev.frame.ThisObject(); this != nil {
		if field := this.ReferenceType().FieldByName(name); field != nil {
			val, err := this.GetField(field)
			if err != nil {
				return nil, errors.Internal(err)
			}
			return val, nil
		}
	}
	return nil, errors.InvalidExpression(ev.input, "cannot resolve '"+name+"'")
}

// readField dereferences a field on the current chain value.
func (ev *evaluator) readField(base jdi.Value, baseName, fieldName string) (jdi.Value, error) {
	obj, err := ev.requireObject(base, baseName, fieldName)
	if err != nil {
		return nil, err
	}
	field := obj.ReferenceType().FieldByName(fieldName)
	if field == nil {
		return nil, errors.InvalidExpression(ev.input,
			"no field '"+fieldName+"' on "+obj.TypeName())
	}
	val, err := obj.GetField(field)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return val, nil
}

// invoke parses an argument list and calls a method on the current chain
// value. Overload resolution is coarse: the first arity match wins.
func (ev *evaluator) invoke(base jdi.Value, baseName, methodName string) (jdi.Value, error) {
	obj, err := ev.requireObject(base, baseName, methodName)
	if err != nil {
		return nil, err
	}

	args, err := ev.parseArgs()
	if err != nil {
		return nil, err
	}

	methods := obj.ReferenceType().MethodsByName(methodName)
	if len(methods) == 0 {
		return nil, errors.InvalidExpression(ev.input,
			"no method '"+methodName+"' on "+obj.TypeName())
	}
	var method jdi.MethodRef
	for _, m := range methods {
		if len(m.ArgumentTypeNames()) == len(args) {
			method = m
			break
		}
	}
	if method == nil {
		if len(methods) == 1 {
			method = methods[0]
		} else {
			return nil, errors.InvalidExpression(ev.input, fmt.Sprintf(
				"no overload of '%s' takes %d arguments", methodName, len(args)))
		}
	}

	val, err := obj.InvokeMethod(ev.thread, method, args)
	if err != nil {
		if inv, ok := err.(*jdi.InvocationError); ok {
			var id int64
			typeName := "exception"
			if inv.Exception != nil {
				id = inv.Exception.UniqueID()
				typeName = inv.Exception.TypeName()
			}
			return nil, errors.ThrownException(typeName, id)
		}
		return nil, errors.Internal(err)
	}
	return val, nil
}

// requireObject rejects chains through null or primitives.
func (ev *evaluator) requireObject(base jdi.Value, baseName, member string) (jdi.ObjectValue, error) {
	if base == nil {
		return nil, errors.NullDereference(member)
	}
	obj, ok := base.(jdi.ObjectValue)
	if !ok {
		return nil, errors.InvalidExpression(ev.input,
			"cannot access '"+member+"' on primitive "+baseName)
	}
	return obj, nil
}

// parseArgs consumes "( expr, expr, ... )". String literals starting with
// '@' become object handle lookups.
func (ev *evaluator) parseArgs() ([]jdi.Value, error) {
	ev.skipSpace()
	if !ev.consume('(') {
		return nil, errors.InvalidExpression(ev.input, "expected '('")
	}
	ev.skipSpace()
	if ev.consume(')') {
		return nil, nil
	}

	var args []jdi.Value
	for {
		ev.skipSpace()
		if ev.peek() == '"' {
			// Peek for an @id handle before mirroring as a string.
			save := ev.pos
			text, err := ev.parseString()
			if err != nil {
				return nil, err
			}
			if strings.HasPrefix(text, "@") {
				obj, err := ev.session.objectRefFromText(text)
				if err != nil {
					return nil, err
				}
				args = append(args, obj)
			} else {
				ev.pos = save
				val, err := ev.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, val)
			}
		} else {
			val, err := ev.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, val)
		}

		ev.skipSpace()
		if ev.consume(',') {
			continue
		}
		if ev.consume(')') {
			return args, nil
		}
		return nil, errors.InvalidExpression(ev.input, "expected ',' or ')' in argument list")
	}
}

// --- lexing helpers ---

func (ev *evaluator) skipSpace() {
	for ev.pos < len(ev.input) && (ev.input[ev.pos] == ' ' || ev.input[ev.pos] == '\t') {
		ev.pos++
	}
}

func (ev *evaluator) peek() byte {
	if ev.pos >= len(ev.input) {
		return 0
	}
	return ev.input[ev.pos]
}

func (ev *evaluator) consume(c byte) bool {
	if ev.peek() == c {
		ev.pos++
		return true
	}
	return false
}

func (ev *evaluator) parseIdent() (string, error) {
	ev.skipSpace()
	start := ev.pos
	for ev.pos < len(ev.input) {
		c := ev.input[ev.pos]
		if c == '_' || c == '$' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(ev.pos > start && c >= '0' && c <= '9') {
			ev.pos++
			continue
		}
		break
	}
	if ev.pos == start {
		return "", errors.InvalidExpression(ev.input, "expected a name at position "+strconv.Itoa(start))
	}
	return ev.input[start:ev.pos], nil
}

func (ev *evaluator) parseString() (string, error) {
	// Opening quote already peeked.
	ev.pos++
	var sb strings.Builder
	for ev.pos < len(ev.input) {
		c := ev.input[ev.pos]
		if c == '\\' && ev.pos+1 < len(ev.input) {
			ev.pos++
			sb.WriteString(unescapeChar(`\` + string(ev.input[ev.pos])))
			ev.pos++
			continue
		}
		if c == '"' {
			ev.pos++
			return sb.String(), nil
		}
		sb.WriteByte(c)
		ev.pos++
	}
	return "", errors.InvalidExpression(ev.input, "unterminated string literal")
}

func (ev *evaluator) parseChar() (rune, error) {
	// Opening quote already peeked.
	ev.pos++
	start := ev.pos
	for ev.pos < len(ev.input) && ev.input[ev.pos] != '\'' {
		ev.pos++
	}
	if ev.pos >= len(ev.input) {
		return 0, errors.InvalidExpression(ev.input, "unterminated char literal")
	}
	inner := unescapeChar(ev.input[start:ev.pos])
	ev.pos++
	runes := []rune(inner)
	if len(runes) != 1 {
		return 0, errors.InvalidExpression(ev.input, "char literal must hold exactly one character")
	}
	return runes[0], nil
}

func (ev *evaluator) parseNumber() (jdi.Value, string, error) {
	start := ev.pos
	if ev.peek() == '-' {
		ev.pos++
	}
	decimal := false
	for ev.pos < len(ev.input) {
		c := ev.input[ev.pos]
		if c >= '0' && c <= '9' {
			ev.pos++
			continue
		}
		if c == '.' && !decimal && ev.pos+1 < len(ev.input) &&
			ev.input[ev.pos+1] >= '0' && ev.input[ev.pos+1] <= '9' {
			decimal = true
			ev.pos++
			continue
		}
		break
	}
	text := ev.input[start:ev.pos]
	if text == "" || text == "-" {
		return nil, "", errors.InvalidExpression(ev.input, "malformed number")
	}
	if decimal {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, "", errors.InvalidExpression(ev.input, "malformed number '"+text+"'")
		}
		return ev.target.MirrorDouble(f), text, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, "", errors.InvalidExpression(ev.input, "malformed number '"+text+"'")
	}
	if n >= -2147483648 && n <= 2147483647 {
		return ev.target.MirrorInt(int32(n)), text, nil
	}
	return ev.target.MirrorLong(n), text, nil
}
