// Package resilience implements the circuit breaker guarding outbound
// source fetches against unreliable bundle hosts.
package resilience
