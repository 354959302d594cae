package rag

// Stage 标识管线状态机中的一个状态.
type Stage string

const (
	StageRetrieve Stage = "retrieve"
	StageRerank   Stage = "rerank"
	StageGrade    Stage = "grade"
	StageGenerate Stage = "generate"
	StageDone     Stage = "done"
)

// Route 是评分阶段之后的路由决策.
type Route int

const (
	// RouteGenerate 表示仍有候选文档，进入生成阶段.
	RouteGenerate Route = iota
	// RouteSkip 表示评分后候选为空，跳过生成并返回固定回退答案.
	RouteSkip
)

func (r Route) String() string {
	switch r {
	case RouteGenerate:
		return "generate"
	case RouteSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// State 是贯穿管线的工作单元。每次调用独占一个新构造的 State，
// 各阶段整体替换 Documents，绝不与其他调用共享.
type State struct {
	Question   string      `json:"question"`
	Documents  []Candidate `json:"documents"`
	Generation string      `json:"generation,omitempty"`
}

// NewState 从问题构造初始管线状态.
func NewState(question string) *State {
	return &State{Question: question}
}
