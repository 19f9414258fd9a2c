package orchestrator

import (
	"encoding/json"
	"fmt"
	"io"
)

// payload is handed from the supervisor process to the nsinit process over
// an inherited pipe (ExtraFiles).
//
// MountPoints is deliberately absent: nsinit recomputes mountplan.Plan
// itself from RuleTexts+Cwd, so the plan can never drift between what the
// supervisor decided and what nsinit actually mounts.
type payload struct {
	RuleTexts  []string `json:"rule_texts"`
	Cwd        string   `json:"cwd"`
	TargetArgv []string `json:"target_argv"`
	Quiet      bool     `json:"quiet"`
	LogFile    string   `json:"log_file,omitempty"`
}

func encodePayload(w io.Writer, p payload) error {
	if err := json.NewEncoder(w).Encode(p); err != nil {
		return fmt.Errorf("orchestrator: encoding payload: %w", err)
	}

	return nil
}

func decodePayload(r io.Reader) (payload, error) {
	var p payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return payload{}, fmt.Errorf("orchestrator: decoding payload: %w", err)
	}

	return p, nil
}

// cmdPayload is the smaller handoff nsinit gives cmdinit: by the time
// cmdinit exists, the mount plan has already been computed and mounted, so
// cmdinit only needs to know where to chdir back to and what to exec.
type cmdPayload struct {
	Cwd        string   `json:"cwd"`
	TargetArgv []string `json:"target_argv"`
}

func encodeCmdPayload(w io.Writer, p cmdPayload) error {
	if err := json.NewEncoder(w).Encode(p); err != nil {
		return fmt.Errorf("orchestrator: encoding cmd payload: %w", err)
	}

	return nil
}

func decodeCmdPayload(r io.Reader) (cmdPayload, error) {
	var p cmdPayload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return cmdPayload{}, fmt.Errorf("orchestrator: decoding cmd payload: %w", err)
	}

	return p, nil
}
