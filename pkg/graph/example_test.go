package graph_test

import (
	"fmt"

	"github.com/matzehuels/fsm/pkg/graph"
)

func name(s string) string { return s }

func ExamplePostorder() {
	// app depends on lib and log; lib depends on log.
	app := graph.NewNode("app")
	lib := graph.NewNode("lib")
	logging := graph.NewNode("log")
	app.Link(lib)
	app.Link(logging)
	lib.Link(logging)

	order, _ := graph.Postorder(app, name, name, graph.Options{})
	fmt.Println(order)
	// Output:
	// [log lib app]
}

func ExamplePostorder_cycle() {
	// Cycles terminate: each payload is visited once.
	x := graph.NewNode("x")
	y := graph.NewNode("y")
	x.Link(y)
	y.Link(x)

	order, _ := graph.Postorder(x, name, name, graph.Options{})
	fmt.Println(order, graph.Size(x, name))
	// Output:
	// [y x] 2
}

func ExamplePostorderSeq() {
	root := graph.NewNode("root")
	root.Link(graph.NewNode("dep"))

	for payload, err := range graph.PostorderSeq(root, name, graph.Options{}) {
		if err != nil {
			fmt.Println("error:", err)
			break
		}
		fmt.Println(payload)
	}
	// Output:
	// dep
	// root
}
