// Package command validates the key/value arguments of a decoration request.
//
// Requests arrive as flat string maps, from the CLI flags or over the daemon
// socket:
//
//	target=pane emojis=🚀 mode=temp pane_id=3
//	target=tab emojis=📌✅ mode=permanent tab_index=1
//	info=true
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/timvw/emotitle/internal/model"
)

// Argument keys.
const (
	KeyTarget   = "target"
	KeyEmojis   = "emojis"
	KeyMode     = "mode"
	KeyPaneID   = "pane_id"
	KeyTabIndex = "tab_index"
	KeyInfo     = "info"
)

// IsInfo reports whether args ask for the diagnostic dump instead of a
// decoration.
func IsInfo(args map[string]string) bool {
	return strings.EqualFold(strings.TrimSpace(args[KeyInfo]), "true")
}

// Parse validates args into a command. Error strings are returned to the
// requester verbatim.
func Parse(args map[string]string) (model.Command, error) {
	target, ok := args[KeyTarget]
	if !ok {
		return model.Command{}, fmt.Errorf("missing required arg: %s", KeyTarget)
	}
	emojis, ok := args[KeyEmojis]
	if !ok {
		return model.Command{}, fmt.Errorf("missing required arg: %s", KeyEmojis)
	}
	emojis = strings.TrimSpace(emojis)
	if emojis == "" {
		return model.Command{}, fmt.Errorf("%s must not be empty", KeyEmojis)
	}

	mode := model.Temporary
	if raw, ok := args[KeyMode]; ok {
		m, err := model.ParseMode(raw)
		if err != nil {
			return model.Command{}, err
		}
		mode = m
	}

	paneID, err := optionalUint32(args, KeyPaneID)
	if err != nil {
		return model.Command{}, err
	}

	cmd := model.Command{Decoration: emojis, Mode: mode}
	switch model.TargetKind(target) {
	case model.TargetPane:
		if _, ok := args[KeyTabIndex]; ok {
			return model.Command{}, fmt.Errorf("%s is not allowed when target=pane", KeyTabIndex)
		}
		cmd.Target = model.Target{Kind: model.TargetPane, PaneID: paneID}
	case model.TargetTab:
		tabIndex, err := optionalIndex(args, KeyTabIndex)
		if err != nil {
			return model.Command{}, err
		}
		if paneID != nil && tabIndex != nil {
			return model.Command{}, fmt.Errorf("%s and %s cannot be set together when target=tab", KeyPaneID, KeyTabIndex)
		}
		cmd.Target = model.Target{Kind: model.TargetTab, PaneID: paneID, TabIndex: tabIndex}
	default:
		return model.Command{}, fmt.Errorf("unsupported target: %s", target)
	}
	return cmd, nil
}

// Args renders a command back into request arguments.
func Args(cmd model.Command) map[string]string {
	args := map[string]string{
		KeyTarget: string(cmd.Target.Kind),
		KeyEmojis: cmd.Decoration,
		KeyMode:   cmd.Mode.String(),
	}
	if cmd.Target.PaneID != nil {
		args[KeyPaneID] = strconv.FormatUint(uint64(*cmd.Target.PaneID), 10)
	}
	if cmd.Target.TabIndex != nil {
		args[KeyTabIndex] = strconv.Itoa(*cmd.Target.TabIndex)
	}
	return args
}

func optionalUint32(args map[string]string, key string) (*uint32, error) {
	raw, ok := args[key]
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%s must be an unsigned integer", key)
	}
	out := uint32(v)
	return &out, nil
}

func optionalIndex(args map[string]string, key string) (*int, error) {
	raw, ok := args[key]
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 31)
	if err != nil {
		return nil, fmt.Errorf("%s must be an unsigned integer", key)
	}
	out := int(v)
	return &out, nil
}
