// Package token implements the reference ephemeral behavior: a token
// entity carries an expiry, disappears from storage when it stops, and
// leaves only its archived terminal snapshot behind.
package token

import (
	"time"

	"domaincore/pkg/object"
	"domaincore/pkg/typeapi"
)

// TypeTag identifies token entities.
const TypeTag object.TypeTag = "token"

// Behavior is the ephemeral token behavior.
type Behavior struct {
	typeapi.Base
}

// New constructs the token behavior.
func New() *Behavior {
	return &Behavior{}
}

// Info declares tokens ephemeral: removed from storage after stop, with
// an archived terminal snapshot.
func (*Behavior) Info() typeapi.Info {
	return typeapi.Info{
		Type:            TypeTag,
		Archive:         true,
		RemoveAfterStop: true,
		MinStartedTime:  time.Second,
	}
}

// Schema pins the token identity fields immutable after creation.
func (*Behavior) Schema(purpose typeapi.SchemaPurpose) typeapi.Schema {
	return typeapi.Schema{
		"secret":       {Kind: typeapi.KindString, Required: true, Immutable: true},
		"subject":      {Kind: typeapi.KindString, Immutable: true},
		"expires_time": {Kind: typeapi.KindString},
		"enabled":      {Kind: typeapi.KindBool},
	}
}

// OnArchive strips the secret from the terminal snapshot.
func (*Behavior) OnArchive(s object.Session) (map[string]any, error) {
	payload := object.CloneMap(s.Object)
	delete(payload, "secret")
	payload["id"] = s.ID
	payload["path"] = s.Path
	payload["unload_reason"] = s.UnloadReason
	return payload, nil
}

// OnSyncOp answers validate with whether the presented secret matches and
// the token has not expired.
func (*Behavior) OnSyncOp(op typeapi.Op, s object.Session) (typeapi.OpResult, error) {
	switch op.Name {
	case "validate":
		secret, _ := op.Args["secret"].(string)
		stored, _ := s.Object["secret"].(string)
		valid := secret != "" && secret == stored && s.Enabled
		if exp, ok := s.ExpiresAt(); ok && !exp.After(time.Now()) {
			valid = false
		}
		return typeapi.OpResult{
			Outcome: typeapi.OpReply,
			Reply:   map[string]any{"valid": valid},
		}, nil
	case "revoke":
		return typeapi.OpResult{Outcome: typeapi.OpStop, StopReason: object.ReasonUnloaded}, nil
	default:
		return typeapi.OpResult{Outcome: typeapi.OpNotHandled}, nil
	}
}
