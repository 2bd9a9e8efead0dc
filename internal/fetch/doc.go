// Package fetch provides the transport that downloads dependency bytes.
//
// Transport handles http and https URIs through an *http.Client and file URIs
// by reading the local file. It also offers an optional reachability check
// used before any dependency is downloaded.
package fetch
