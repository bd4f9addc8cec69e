/*
Package builder constructs the task graph for one build invocation. It is the
bridge between the configuration model (the 'model' package) and the
execution engine (the 'scheduler' package).

The primary artifact produced by this package is a validated, ready-to-run
*Graph.

Graph construction is a multi-phase process:

 1. Selection: the requested names are resolved against the declared tasks.
    A selector is either "project:task", an exact task name, a camel-case
    abbreviation ("cJ" for "compileJava") or "*:task" for that task in every
    project. Unknown names fail with suggestions; names matching tasks in
    several projects fail as ambiguous.

 2. Materialization: starting from the selected tasks, dependsOn edges are
    walked and each reachable task is realized from the model exactly once.
    Only reachable tasks are ever realized.

 3. Ordering: mustRunAfter and shouldRunAfter constraints are added between
    tasks that are already in the graph. They never pull in new tasks.

 4. Validation: hard and mustRunAfter edges are checked for cycles with a
    strongly connected component pass; a cycle is reported with its full
    path. shouldRunAfter edges that would close a cycle are dropped.

Upon success the builder hands the *Graph to the scheduler.
*/
package builder
