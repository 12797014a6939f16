package circuit

type QASMStatementType struct {
	Name string
}

func (q *QASMStatementType) String() string {
	return q.Name
}

type QASMGateType struct {
	Name string
}

func (q *QASMGateType) String() string {
	return q.Name
}

// ProgramIR is the statement-level form of an OpenQASM 3 program. It keeps
// every statement in source order for allow/deny filtering and maps each
// declared qubit and bit to its absolute position in the register.
type ProgramIR struct {
	Version    string
	Statements []StatementIR

	QubitCount  int
	QubitAbsNum map[QCbitIdentifier]int // Get absolute qubit number
	BitCount    int
	BitAbsNum   map[QCbitIdentifier]int // Get absolute bit number
}

func NewProgramIR() *ProgramIR {
	return &ProgramIR{
		QubitCount:  0,
		QubitAbsNum: make(map[QCbitIdentifier]int),
		BitCount:    0,
		BitAbsNum:   make(map[QCbitIdentifier]int),
	}
}

func (p *ProgramIR) GateCalls() []*GateCallStatementIR {
	calls := []*GateCallStatementIR{}
	for _, s := range p.Statements {
		if g, ok := s.(*GateCallStatementIR); ok {
			calls = append(calls, g)
		}
	}
	return calls
}

type QCbitIdentifier struct {
	Name  string
	Index int
}

type MeasureExpressionIR struct {
	QCbitIdentifier QCbitIdentifier
}

type StatementIR interface {
	String() string
	IsStatementIR()
}

type QuantumDeclarationStatementIR struct {
	Identifier string
	Designator int
	Line       int
}

func (QuantumDeclarationStatementIR) IsStatementIR() {}
func (QuantumDeclarationStatementIR) String() string {
	return "QuantumDeclarationStatement"
}

type ClassicalDeclarationStatementIR struct {
	Identifier string
	Designator int
	Line       int
}

func (ClassicalDeclarationStatementIR) IsStatementIR() {}
func (ClassicalDeclarationStatementIR) String() string {
	return "ClassicalDeclarationStatement"
}

type GateCallStatementIR struct {
	GateName string
	Operands []QCbitIdentifier
	Params   []float64
	Line     int
}

func (GateCallStatementIR) IsStatementIR() {}
func (GateCallStatementIR) String() string {
	return "GateCallStatement"
}

type AssignmentStatementIR struct {
	Left  QCbitIdentifier
	Right MeasureExpressionIR
	Line  int
}

func (AssignmentStatementIR) IsStatementIR() {}
func (AssignmentStatementIR) String() string {
	return "AssignmentStatement"
}
