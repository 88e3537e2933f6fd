/*
Copyright 2026 The Lifecycle Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package graph

import (
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestToposortYamlResolvesGraph(t *testing.T) {
	// Concrete scenario 1 (§8): services [A, B{env.X={{A_internalHostname}}}]
	// produces edge B -> A and order [A, B].
	g := New()
	g.AddNode("A")
	g.AddEdge("B", "A", false)

	order, err := g.Toposort()
	testutil.Run(t, "A before B", func(t *testutil.T) {
		t.CheckErrorAndDeepEqual(false, err, []string{"A", "B"}, order)
	})
}

func TestToposortTieBreakByDeclarationOrder(t *testing.T) {
	g := New()
	g.AddNode("C")
	g.AddNode("B")
	g.AddNode("A")

	order, err := g.Toposort()
	testutil.Run(t, "independent nodes keep declaration order", func(t *testutil.T) {
		t.CheckErrorAndDeepEqual(false, err, []string{"C", "B", "A"}, order)
	})
}

func TestToposortCycleDetected(t *testing.T) {
	g := New()
	g.AddEdge("A", "B", true)
	g.AddEdge("B", "C", true)
	g.AddEdge("C", "A", true)

	_, err := g.Toposort()
	testutil.Run(t, "cycle surfaces as DependencyCycleError", func(t *testutil.T) {
		if err == nil {
			t.Fatalf("expected error, got nil")
		}
		if _, ok := err.(*lifecycleerrors.DependencyCycleError); !ok {
			t.Fatalf("expected *DependencyCycleError, got %T: %v", err, err)
		}
	})
}

func TestToposortEnvOnlyCycleResolves(t *testing.T) {
	// Two services referencing each other's env (e.g.
	// {{a_internalHostname}} in b's env and {{b_internalHostname}} in
	// a's env) form a cycle with no deploymentDependsOn edge anywhere;
	// per §4.3 step 6 this must still resolve rather than raise
	// DependencyCycleError.
	g := New()
	g.AddEdge("A", "B", false)
	g.AddEdge("B", "A", false)

	order, err := g.Toposort()
	testutil.Run(t, "env-only cycle still produces an order", func(t *testutil.T) {
		t.CheckErrorAndDeepEqual(false, err, []string{"A", "B"}, order)
	})
}

func TestToposortMixedCycleIsFatal(t *testing.T) {
	// A hard edge anywhere in a cycle makes the whole cycle fatal, even
	// when the rest of the cycle's edges are soft env references.
	g := New()
	g.AddEdge("A", "B", true)
	g.AddEdge("B", "A", false)

	_, err := g.Toposort()
	testutil.Run(t, "hard edge in the cycle surfaces as DependencyCycleError", func(t *testutil.T) {
		if _, ok := err.(*lifecycleerrors.DependencyCycleError); !ok {
			t.Fatalf("expected *DependencyCycleError, got %T: %v", err, err)
		}
	})
}

func TestToposortDiamond(t *testing.T) {
	g := New()
	g.AddEdge("B", "A", true)
	g.AddEdge("C", "A", true)
	g.AddEdge("D", "B", true)
	g.AddEdge("D", "C", true)

	order, err := g.Toposort()
	testutil.Run(t, "diamond dependency resolves", func(t *testutil.T) {
		t.CheckError(false, err)
		posA := indexOf(order, "A")
		posB := indexOf(order, "B")
		posC := indexOf(order, "C")
		posD := indexOf(order, "D")
		if !(posA < posB && posA < posC && posB < posD && posC < posD) {
			t.Fatalf("unexpected order: %v", order)
		}
	})
}
