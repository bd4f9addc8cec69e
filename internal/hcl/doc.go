// Package hcl provides the HCL implementation of the config.Loader
// interface. It parses build files with hashicorp/hcl and translates their
// blocks into the format-agnostic config.Model.
//
// A build file may contain three kinds of top-level blocks:
//
//	project "app" {
//	  task "compile" {
//	    action     = "exec"
//	    args       = { command = ["go", "build", "./..."] }
//	    depends_on = ["generate"]
//	    outputs    = ["bin/app"]
//	  }
//	}
//
//	setting "versions.go" {
//	  value = "1.24"
//	}
//
//	rule "mutate" "app.tasks.compile" {
//	  inputs      = ["versions.go"]
//	  description = "Compile with Go ${input["versions.go"]}"
//	}
package hcl
