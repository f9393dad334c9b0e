// Package argo speaks the Argo inference API: the backend-native request
// and response shapes, the pure translation functions between those shapes
// and the client format ([ToBackend], [FromBackend]), and the transport
// client that carries them over HTTP.
//
// The transport client performs exactly one upstream attempt per call
// unless retries are configured. All transport failures surface as
// [*BackendError] values tagged with a kind (connect, timeout, http_status)
// for the orchestrator to map onto client-visible statuses.
package argo
