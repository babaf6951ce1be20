// Package services holds the error taxonomy shared by pipeline components and
// the clients for external collaborators (acoustic fingerprinting, metadata
// service, LLM normalization).
package services
