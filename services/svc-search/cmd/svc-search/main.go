package main

import (
	"github.com/architeacher/smartsearch/services/svc-search/internal/runtime"
)

func main() {
	runtime.New().Run()
}
