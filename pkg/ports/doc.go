// Package ports defines the interfaces between the decode pipeline and its
// sources, consumers and external dependencies.
package ports
