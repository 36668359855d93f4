// Package runtime provides the execution context for add2git actions.
//
// It encapsulates shared dependencies needed by actions, such as the opened
// repository, logger, configuration and the commit identity of the run.
package runtime
