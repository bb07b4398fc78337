package experiment

import (
	"github.com/vk/expflowgo/internal/param"
	"github.com/zclconf/go-cty/cty"
)

// Loop describes a repeated execution of a contiguous flow region. It is
// referenced from the flow by a paired LoopInitiator/LoopTerminator; the
// two markers share the same Loop instance, which is how the pairing is
// established.
type Loop struct {
	Params param.Map
	// IndexName is the per-iteration variable in the generated script
	// ("thisTrial"); derived from the loop name through the namespace.
	IndexName string
}

// Loop ordering methods recognized by the trial handler in both runtimes.
const (
	LoopRandom     = "random"
	LoopSequential = "sequential"
	LoopFullRandom = "fullRandom"
)

// NewLoop builds a loop with the standard trial-handler params.
func NewLoop(name string, nReps float64, loopType, conditionsFile string) *Loop {
	l := &Loop{Params: param.Map{}}
	l.Params["name"] = param.New(name, param.Code)
	l.Params["nReps"] = param.NewNum(nReps)
	l.Params["loopType"] = &param.Param{
		Val: cty.StringVal(loopType), ValType: param.Str, Updates: param.Constant,
		AllowedVals: []string{LoopRandom, LoopSequential, LoopFullRandom},
		Categ:       "Basic", Label: "Loop type",
	}
	l.Params["conditionsFile"] = param.New(conditionsFile, param.File)
	l.Params["Selected rows"] = param.New("", param.Code)
	l.Params["random seed"] = param.New("", param.Code)
	l.Params["isTrials"] = param.NewBool(true)
	return l
}

// Name returns the loop's handler variable name.
func (l *Loop) Name() string {
	return l.Params["name"].RawString()
}

// Copy returns a deep duplicate of the loop.
func (l *Loop) Copy() *Loop {
	return &Loop{Params: l.Params.Copy(), IndexName: l.IndexName}
}
