package main

import "github.com/cleitonmarx/symbiont-llm-engine/internal/app"

func main() {
	err := app.NewLLMEngineApp().
		Introspect(&app.ReportLoggerIntrospector{}).
		Run()
	if err != nil {
		panic(err)
	}
}
