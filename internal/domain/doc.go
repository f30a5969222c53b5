// Package domain defines the wire types shared by the gateway and the state
// slices: users, stores, reviews, request payloads, filters and the uniform
// response envelope.
//
// Field names follow the backend's JSON contract (camelCase). Optional
// request fields are pointers or empty strings; both are omitted on the wire
// rather than sent as null or "".
package domain
