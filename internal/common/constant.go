package common

// AuthorizationHeaderName is the HTTP header used to carry the bearer token
// on outbound gateway requests.
const AuthorizationHeaderName = "Authorization"

// OutgoingSuffixMarker is appended once to package identifiers scanned on
// outgoing tasks, keeping the outgoing scan namespace distinct from incoming.
const OutgoingSuffixMarker = "_"
