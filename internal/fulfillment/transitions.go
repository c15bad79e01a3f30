package fulfillment

import (
	"fmt"

	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
)

var transitions = map[enums.FulfillmentStatus]map[enums.FulfillmentAction]enums.FulfillmentStatus{
	enums.FulfillmentPending: {
		enums.ActionPrepare: enums.FulfillmentPrepared,
		enums.ActionDeliver: enums.FulfillmentDelivered,
	},
	enums.FulfillmentPrepared: {
		enums.ActionDeliver: enums.FulfillmentDelivered,
		enums.ActionRevert:  enums.FulfillmentPending,
	},
	enums.FulfillmentDelivered: {
		enums.ActionReactivate: enums.FulfillmentPrepared,
	},
}

// Next returns the status reached by applying action to from.
func Next(from enums.FulfillmentStatus, action enums.FulfillmentAction) (enums.FulfillmentStatus, error) {
	if to, ok := transitions[from][action]; ok {
		return to, nil
	}
	return "", invalidTransition(from, action.String())
}

// ActionFor returns the action that moves from into to. Self transitions have none.
func ActionFor(from, to enums.FulfillmentStatus) (enums.FulfillmentAction, error) {
	for action, target := range transitions[from] {
		if target == to {
			return action, nil
		}
	}
	return "", invalidTransition(from, to.String())
}

// Allowed lists the actions available from a status.
func Allowed(from enums.FulfillmentStatus) []enums.FulfillmentAction {
	out := make([]enums.FulfillmentAction, 0, len(transitions[from]))
	for _, action := range []enums.FulfillmentAction{
		enums.ActionPrepare,
		enums.ActionDeliver,
		enums.ActionRevert,
		enums.ActionReactivate,
	} {
		if _, ok := transitions[from][action]; ok {
			out = append(out, action)
		}
	}
	return out
}

func invalidTransition(from enums.FulfillmentStatus, attempted string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot move order from %s via %s", from, attempted)).
		WithDetails(map[string]any{
			"from":      from,
			"attempted": attempted,
			"allowed":   Allowed(from),
		})
}
