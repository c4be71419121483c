// Package docs CleanPath API.
//
// Documentation of the CleanPath waste collection API.
//
//     Schemes: https
//     BasePath: /api/v1
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - bearer
//
//    SecurityDefinitions:
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/cleanpath/cleanpath-api/models"
)

// swagger:route PUT /bins/{bin_id}/level bins binLevelEndpointID
// Adds a signed delta to the bin level. Crossing into urgent schedules a pickup.
// responses:
//   200: binLevelResponse
//   400: errorResponse
//   404: errorResponse

// The outcome of a level update.
// swagger:response binLevelResponse
type binLevelResponseWrapper struct {
	// in:body
	Body models.BinLevelUpdate
}

// swagger:parameters binLevelEndpointID
type binLevelParamsWrapper struct {
	// in:path
	BinID string `json:"bin_id"`
	// in:body
	Body models.UpdateBinLevelRequest
}

// swagger:route POST /garbage/{garbage_id}/scan garbage garbageScanEndpointID
// Verifies a QR token and collects the pickup request. Repeat scans bill once.
// responses:
//   200: garbageScanResponse
//   400: errorResponse
//   403: errorResponse
//   404: errorResponse

// The outcome of a scan.
// swagger:response garbageScanResponse
type garbageScanResponseWrapper struct {
	// in:body
	Body models.GarbageScan
}

// swagger:parameters garbageScanEndpointID
type garbageScanParamsWrapper struct {
	// in:path
	GarbageID string `json:"garbage_id"`
	// in:body
	Body models.ScanGarbageRequest
}

// swagger:route POST /schedules/{schedule_id}/complete schedules scheduleCompleteEndpointID
// Completes a schedule once. Concurrent callers after the first get a conflict.
// responses:
//   200: scheduleCompleteResponse
//   403: errorResponse
//   409: errorResponse

// The outcome of completing a schedule.
// swagger:response scheduleCompleteResponse
type scheduleCompleteResponseWrapper struct {
	// in:body
	Body models.ScheduleCompletion
}

// swagger:parameters scheduleCompleteEndpointID
type scheduleCompleteParamsWrapper struct {
	// in:path
	ScheduleID string `json:"schedule_id"`
	// in:body
	Body models.CompleteScheduleRequest
}

// swagger:route POST /transactions/{transaction_id}/checkout transactions checkoutEndpointID
// Opens a payment session for one of the caller's unpaid transactions.
// responses:
//   200: checkoutResponse
//   409: errorResponse

// A payment session.
// swagger:response checkoutResponse
type checkoutResponseWrapper struct {
	// in:body
	Body models.Checkout
}

// Returned for every failed request.
// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorMessageResponse
}
