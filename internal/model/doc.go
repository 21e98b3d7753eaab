// Package model is the adapter to the remote language-model endpoint.
//
// Client.Send makes exactly one multipart/form-data POST per call. The prompt
// travels in the "q" field; "uploaded_file", "filter_by_file" and "chunks" are
// sent empty. The session ID, when present, is passed as the
// model_session_id_param query parameter so the remote service can keep its
// own context. The reply is the "message" field of the JSON body.
//
// Failures are classified as:
//
//   - ErrNotConfigured: no endpoint, checked before any network attempt
//   - *RemoteError: non-2xx status, with detail from the body's "detail" or
//     "message" field, else the status text
//   - ErrNoResponse: transport failure or timeout (wraps the cause)
//   - ErrMalformedResponse: success status but no usable "message" field
//
// The cookie is sent as a header and never logged.
package model
