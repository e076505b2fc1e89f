package kite

import (
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"trade-relay-bot/internal/types"
)

// Kite order statuses.
const (
	statusOpen           = "OPEN"
	statusTriggerPending = "TRIGGER PENDING"
	statusOpenPending    = "OPEN PENDING"
	statusValidation     = "VALIDATION PENDING"
	statusPutReceived    = "PUT ORDER REQ RECEIVED"
	statusModifyPending  = "MODIFY PENDING"
	statusModifyValid    = "MODIFY VALIDATION PENDING"
	statusAMOReceived    = "AMO REQ RECEIVED"
	statusComplete       = "COMPLETE"
	statusCancelled      = "CANCELLED"
	statusRejected       = "REJECTED"
)

// mapStatus folds Kite's order statuses into the gateway vocabulary.
func mapStatus(s string) string {
	switch s {
	case statusRejected:
		return types.StatusRejected
	case statusComplete:
		return "Filled"
	case statusCancelled:
		return "Cancelled"
	case statusAMOReceived:
		return types.StatusPreSubmitted
	}
	return types.StatusSubmitted
}

func isOpen(s string) bool {
	switch s {
	case statusOpen, statusTriggerPending, statusOpenPending, statusValidation,
		statusPutReceived, statusModifyPending, statusModifyValid, statusAMOReceived:
		return true
	}
	return false
}

func kiteOrderType(t types.OrderType) string {
	switch t {
	case types.OrderTypeLimit:
		return kiteconnect.OrderTypeLimit
	case types.OrderTypeStop:
		return kiteconnect.OrderTypeSLM
	}
	return kiteconnect.OrderTypeMarket
}

func orderType(s string) types.OrderType {
	switch s {
	case kiteconnect.OrderTypeLimit:
		return types.OrderTypeLimit
	case kiteconnect.OrderTypeSL, kiteconnect.OrderTypeSLM:
		return types.OrderTypeStop
	}
	return types.OrderTypeMarket
}

func direction(s string) types.Direction {
	d, err := types.ParseDirection(s)
	if err != nil {
		return 0
	}
	return d
}
