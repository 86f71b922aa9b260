// Package artifact checks a generated site tree: entry documents at the root
// and in nested sections, and evidence of the injected build metadata in the
// rendered text. Every check runs; failures are collected into one Report.
//
// It also computes structural manifests of output trees so that two builds of
// the same content can be compared.
package artifact
