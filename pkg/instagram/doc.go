// Package instagram fetches and decodes Instagram hashtag pages.
//
// The Client is the page fetcher: it paces every attempt through the shared
// rate-limit governor, rotates proxies from the pool, classifies HTTP and
// transport outcomes into the error taxonomy, and absorbs retryable failures
// up to a fixed attempt budget.
//
// DecodeTagPage is the page decoder: it turns raw response bytes (a JSON API
// response or an HTML page with embedded JSON) into a strict TagPage
// structure with explicitly optional fields. Decode failures are classified
// as non-retryable for that payload.
package instagram
