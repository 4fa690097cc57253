package pics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// errTargetUnknown marks a target whose existence could not be checked.
// It fails the file, not the run.
var errTargetUnknown = errors.New("cannot check target")

// Choice is the user's answer to a collision prompt.
type Choice int

const (
	// ChoiceOverwrite overwrites this file only.
	ChoiceOverwrite Choice = iota
	// ChoiceOverwriteAll overwrites this and every later collision.
	ChoiceOverwriteAll
	// ChoiceSkip skips this file only.
	ChoiceSkip
	// ChoiceSkipAll skips this and every later collision.
	ChoiceSkipAll
)

func (c Choice) String() string {
	switch c {
	case ChoiceOverwrite:
		return "overwrite"
	case ChoiceOverwriteAll:
		return "overwrite-all"
	case ChoiceSkip:
		return "skip"
	case ChoiceSkipAll:
		return "skip-all"
	default:
		return fmt.Sprintf("Choice(%d)", int(c))
	}
}

// CollisionPolicy is the blanket decision in force for the rest of a run.
type CollisionPolicy int

const (
	// PolicyAsk prompts on every collision.
	PolicyAsk CollisionPolicy = iota
	// PolicyOverwriteAll overwrites every collision without prompting.
	PolicyOverwriteAll
	// PolicySkipAll skips every collision without prompting.
	PolicySkipAll
)

func (p CollisionPolicy) String() string {
	switch p {
	case PolicyAsk:
		return "ask"
	case PolicyOverwriteAll:
		return "overwrite-all"
	case PolicySkipAll:
		return "skip-all"
	default:
		return fmt.Sprintf("CollisionPolicy(%d)", int(p))
	}
}

// Outcome is what happens to a single file after collision checks.
type Outcome int

const (
	// OutcomeCopy copies the file, replacing any existing target.
	OutcomeCopy Outcome = iota
	// OutcomeSkip leaves the existing target untouched.
	OutcomeSkip
)

// Prompter asks the user what to do about an existing target file.
type Prompter interface {
	// AskOverwrite blocks until the user picks a Choice for targetPath.
	AskOverwrite(targetPath string) (Choice, error)
}

// CollisionResolver decides whether a file overwrites an existing target.
// It owns the run's CollisionPolicy, which only ever moves away from PolicyAsk.
type CollisionResolver struct {
	prompter Prompter
	policy   CollisionPolicy
}

// NewCollisionResolver creates a CollisionResolver starting at PolicyAsk.
func NewCollisionResolver(prompter Prompter) *CollisionResolver {
	return &CollisionResolver{
		prompter: prompter,
		policy:   PolicyAsk,
	}
}

// Policy returns the blanket decision currently in force.
func (r *CollisionResolver) Policy() CollisionPolicy {
	return r.policy
}

// Resolve returns the outcome for targetPath. Missing targets are always
// copied without consulting the policy or the prompter. A target that cannot
// be stat'ed returns an error wrapping errTargetUnknown.
func (r *CollisionResolver) Resolve(targetPath string) (Outcome, error) {
	_, err := os.Stat(targetPath)
	if errors.Is(err, fs.ErrNotExist) {
		return OutcomeCopy, nil
	}
	if err != nil {
		return OutcomeSkip, fmt.Errorf("%w %s: %w", errTargetUnknown, targetPath, err)
	}

	switch r.policy {
	case PolicySkipAll:
		return OutcomeSkip, nil
	case PolicyOverwriteAll:
		return OutcomeCopy, nil
	}

	choice, err := r.prompter.AskOverwrite(targetPath)
	if err != nil {
		return OutcomeSkip, fmt.Errorf("collision prompt for %s: %w", targetPath, err)
	}

	switch choice {
	case ChoiceOverwrite:
		return OutcomeCopy, nil
	case ChoiceOverwriteAll:
		r.policy = PolicyOverwriteAll
		return OutcomeCopy, nil
	case ChoiceSkip:
		return OutcomeSkip, nil
	case ChoiceSkipAll:
		r.policy = PolicySkipAll
		return OutcomeSkip, nil
	default:
		return OutcomeSkip, fmt.Errorf("unknown collision choice: %v", choice)
	}
}
