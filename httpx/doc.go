// Package httpx executes HTTP requests through a bastion pipeline.
//
// [Client] wraps a standard http.Client and a [bastion.Policy] over
// *http.Response. A [Classifier] maps status codes to transient or
// permanent failures, so [bastion.HandleTransient] retries 503s and stops on
// 404s. Request bodies are replayed through http.Request.GetBody on every
// attempt after the first.
package httpx
