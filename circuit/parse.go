package circuit

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ParseProgram scans an OpenQASM 3 subset into a ProgramIR: a version line,
// include lines (skipped), qubit/bit register declarations, gate calls with
// literal or pi-form parameters, and measure assignments. One statement per
// semicolon; // comments are stripped. Operands must reference declared
// registers.
func ParseProgram(qasm string) (*ProgramIR, error) {
	if qasm == "" {
		msg := "no input qasm"
		zap.L().Info(msg)
		return nil, errors.New(msg)
	}
	p := &programScanner{ir: NewProgramIR()}
	sc := bufio.NewScanner(strings.NewReader(qasm))
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.Index(text, "//"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if !strings.HasSuffix(text, ";") {
			return nil, parseError(line, "statement does not end with \";\"", qasm)
		}
		for _, stmt := range strings.Split(text, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if err := p.statement(stmt, line); err != nil {
				zap.L().Info(err.Error())
				zap.L().Debug(fmt.Sprintf("qasm:\n%s", qasm))
				return nil, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return p.ir, nil
}

func parseError(line int, msg string, qasm string) error {
	err := fmt.Errorf("line %d: %s", line, msg)
	zap.L().Info(err.Error())
	zap.L().Debug(fmt.Sprintf("qasm:\n%s", qasm))
	return err
}

// programScanner accumulates statements into ir while checking that every
// operand refers to a declared register.
type programScanner struct {
	ir *ProgramIR
}

func (p *programScanner) statement(s string, line int) error {
	switch {
	case strings.HasPrefix(s, "OPENQASM"):
		return p.version(s, line)
	case strings.HasPrefix(s, "include"):
		// standard gates are built in
		return nil
	case strings.HasPrefix(s, "qubit[") || strings.HasPrefix(s, "qubit "):
		return p.declaration(s, "qubit", line)
	case strings.HasPrefix(s, "bit[") || strings.HasPrefix(s, "bit "):
		return p.declaration(s, "bit", line)
	case strings.Contains(s, "=") && strings.Contains(s, "measure"):
		return p.assignment(s, line)
	default:
		return p.gateCall(s, line)
	}
}

func (p *programScanner) version(s string, line int) error {
	if p.ir.Version != "" {
		return fmt.Errorf("line %d: duplicate OPENQASM version", line)
	}
	v := strings.TrimSpace(strings.TrimPrefix(s, "OPENQASM"))
	if v != "3" && v != "3.0" {
		return fmt.Errorf("line %d: unsupported OpenQASM version %q", line, v)
	}
	p.ir.Version = v
	return nil
}

func (p *programScanner) declaration(s, keyword string, line int) error {
	rest := strings.TrimSpace(strings.TrimPrefix(s, keyword))
	if !strings.HasPrefix(rest, "[") {
		return fmt.Errorf("line %d: %s declaration needs a register size", line, keyword)
	}
	close := strings.Index(rest, "]")
	if close < 0 {
		return fmt.Errorf("line %d: unclosed register size in %q", line, s)
	}
	size, err := strconv.Atoi(strings.TrimSpace(rest[1:close]))
	if err != nil || size < 1 {
		return fmt.Errorf("line %d: invalid register size in %q", line, s)
	}
	ident := strings.TrimSpace(rest[close+1:])
	if !validIdentifier(ident) {
		return fmt.Errorf("line %d: invalid register name %q", line, ident)
	}
	if _, ok := p.ir.QubitAbsNum[QCbitIdentifier{Name: ident, Index: 0}]; ok {
		return fmt.Errorf("line %d: register %q is already declared", line, ident)
	}
	if _, ok := p.ir.BitAbsNum[QCbitIdentifier{Name: ident, Index: 0}]; ok {
		return fmt.Errorf("line %d: register %q is already declared", line, ident)
	}
	if keyword == "qubit" {
		st := &QuantumDeclarationStatementIR{Identifier: ident, Designator: size, Line: line}
		for i := 0; i < size; i++ {
			p.ir.QubitAbsNum[QCbitIdentifier{Name: ident, Index: i}] = p.ir.QubitCount
			p.ir.QubitCount++
		}
		p.ir.Statements = append(p.ir.Statements, st)
	} else {
		st := &ClassicalDeclarationStatementIR{Identifier: ident, Designator: size, Line: line}
		for i := 0; i < size; i++ {
			p.ir.BitAbsNum[QCbitIdentifier{Name: ident, Index: i}] = p.ir.BitCount
			p.ir.BitCount++
		}
		p.ir.Statements = append(p.ir.Statements, st)
	}
	return nil
}

func (p *programScanner) assignment(s string, line int) error {
	parts := strings.SplitN(s, "=", 2)
	left, err := parseIndexedIdentifier(strings.TrimSpace(parts[0]))
	if err != nil {
		return fmt.Errorf("line %d: %s", line, err)
	}
	if _, ok := p.ir.BitAbsNum[left]; !ok {
		return fmt.Errorf("line %d: bit %s[%d] is not declared", line, left.Name, left.Index)
	}
	right := strings.TrimSpace(parts[1])
	if !strings.HasPrefix(right, "measure") {
		return fmt.Errorf("line %d: only measure assignments are supported", line)
	}
	target, err := parseIndexedIdentifier(strings.TrimSpace(strings.TrimPrefix(right, "measure")))
	if err != nil {
		return fmt.Errorf("line %d: %s", line, err)
	}
	if _, ok := p.ir.QubitAbsNum[target]; !ok {
		return fmt.Errorf("line %d: qubit %s[%d] is not declared", line, target.Name, target.Index)
	}
	p.ir.Statements = append(p.ir.Statements, &AssignmentStatementIR{
		Left:  left,
		Right: MeasureExpressionIR{QCbitIdentifier: target},
		Line:  line,
	})
	return nil
}

func (p *programScanner) gateCall(s string, line int) error {
	i := 0
	for i < len(s) && isIdentifierChar(s[i]) {
		i++
	}
	name := s[:i]
	if name == "" {
		return fmt.Errorf("line %d: cannot parse statement %q", line, s)
	}
	rest := strings.TrimSpace(s[i:])
	st := &GateCallStatementIR{GateName: name, Line: line}
	if strings.HasPrefix(rest, "(") {
		close := strings.Index(rest, ")")
		if close < 0 {
			return fmt.Errorf("line %d: unclosed parameter list in %q", line, s)
		}
		for _, raw := range strings.Split(rest[1:close], ",") {
			v, err := evalAngle(raw)
			if err != nil {
				return fmt.Errorf("line %d: cannot evaluate parameter %q of gate %q", line,
					strings.TrimSpace(raw), name)
			}
			st.Params = append(st.Params, v)
		}
		rest = strings.TrimSpace(rest[close+1:])
	}
	if rest == "" {
		return fmt.Errorf("line %d: gate %q has no operands", line, name)
	}
	for _, raw := range strings.Split(rest, ",") {
		op, err := parseIndexedIdentifier(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("line %d: %s", line, err)
		}
		if _, ok := p.ir.QubitAbsNum[op]; !ok {
			return fmt.Errorf("line %d: qubit %s[%d] is not declared", line, op.Name, op.Index)
		}
		st.Operands = append(st.Operands, op)
	}
	p.ir.Statements = append(p.ir.Statements, st)
	return nil
}

func parseIndexedIdentifier(s string) (QCbitIdentifier, error) {
	open := strings.Index(s, "[")
	if open < 1 || !strings.HasSuffix(s, "]") {
		return QCbitIdentifier{}, fmt.Errorf("operand %q is not of the form name[index]", s)
	}
	name := s[:open]
	if !validIdentifier(name) {
		return QCbitIdentifier{}, fmt.Errorf("operand %q is not of the form name[index]", s)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(s[open+1 : len(s)-1]))
	if err != nil || idx < 0 {
		return QCbitIdentifier{}, fmt.Errorf("operand %q has an invalid index", s)
	}
	return QCbitIdentifier{Name: name, Index: idx}, nil
}

// evalAngle evaluates a gate parameter literal: a decimal number or the pi
// forms pi, -pi, pi/d, n*pi and n*pi/d.
func evalAngle(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	sign := 1.0
	t := s
	if strings.HasPrefix(t, "-") {
		sign = -1.0
		t = strings.TrimSpace(t[1:])
	}
	num := 1.0
	den := 1.0
	if i := strings.Index(t, "*"); i >= 0 {
		f, err := strconv.ParseFloat(strings.TrimSpace(t[:i]), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid angle %q", s)
		}
		num = f
		t = strings.TrimSpace(t[i+1:])
	}
	if i := strings.Index(t, "/"); i >= 0 {
		f, err := strconv.ParseFloat(strings.TrimSpace(t[i+1:]), 64)
		if err != nil || f == 0 {
			return 0, fmt.Errorf("invalid angle %q", s)
		}
		den = f
		t = strings.TrimSpace(t[:i])
	}
	if t != "pi" {
		return 0, fmt.Errorf("invalid angle %q", s)
	}
	return sign * num * math.Pi / den, nil
}

func validIdentifier(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentifierChar(s[i]) {
			return false
		}
	}
	return true
}

func isIdentifierChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
