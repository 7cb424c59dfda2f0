// Package domain implements the reference container behavior: a "domain"
// entity groups children and stays resident while anything below it may
// still come back.
package domain

import (
	"domaincore/pkg/object"
	"domaincore/pkg/typeapi"
)

// TypeTag identifies domain entities.
const TypeTag object.TypeTag = "domain"

// Behavior is the domain container behavior.
type Behavior struct {
	typeapi.Base
}

// New constructs the domain behavior.
func New() *Behavior {
	return &Behavior{}
}

// Info declares domain entities as archived, non-ephemeral containers.
func (*Behavior) Info() typeapi.Info {
	return typeapi.Info{
		Type:    TypeTag,
		Archive: true,
	}
}

// Schema constrains the well-known fields; everything else passes through.
func (*Behavior) Schema(purpose typeapi.SchemaPurpose) typeapi.Schema {
	return typeapi.Schema{
		"name":        {Kind: typeapi.KindString, Required: true, Immutable: true},
		"description": {Kind: typeapi.KindString},
		"enabled":     {Kind: typeapi.KindBool},
		"attributes":  {Kind: typeapi.KindMap},
	}
}

// OnAllLinksDown keeps containers resident: children come and go, the
// domain stays.
func (*Behavior) OnAllLinksDown(object.Session) (bool, error) {
	return true, nil
}

// OnSyncOp answers the describe op with a summary of the container.
func (*Behavior) OnSyncOp(op typeapi.Op, s object.Session) (typeapi.OpResult, error) {
	switch op.Name {
	case "describe":
		return typeapi.OpResult{
			Outcome: typeapi.OpReply,
			Reply: map[string]any{
				"name":     s.Name(),
				"path":     s.Path,
				"children": s.ChildCount(),
				"enabled":  s.Enabled,
			},
		}, nil
	default:
		return typeapi.OpResult{Outcome: typeapi.OpNotHandled}, nil
	}
}
