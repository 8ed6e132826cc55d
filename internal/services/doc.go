// Package services wires memoryd's singletons together and hands them
// to entry points through a registry interface.
package services
