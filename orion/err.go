package orion

import "fmt"

// Handle panics with a description if err is not nil. It is meant for
// startup code in main where there is nothing to recover.
func Handle(err error, desc string, args ...any) {
	if err != nil {
		text := fmt.Sprintf(desc, args...)
		panic(text + ": " + err.Error())
	}
}
