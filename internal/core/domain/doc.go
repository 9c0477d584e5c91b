// Package domain contains the core types of the RAG pipeline: source
// files, listings, change sets, pipeline state and cycle statistics.
// It has no dependencies on adapters or external services.
package domain
