/*
Package tstmpl implements typed string templates.

A template file declares the shape of its properties in a TypeScript
frontmatter, followed by a body with ${expression} interpolations:

	---
	import type { User } from "./user";

	interface Props {
	  user: User;
	  unread: number;
	}
	---
	Hi ${user.name}, you have ${unread} new ${unread === 1 ? "message" : "messages"}.

The frontmatter is not evaluated.  Its Props declaration names the properties
that the body may refer to, and is turned into a TypeScript declaration
document (see package tmpldts) so that callers can be type-checked by their
own tooling.  Templates can also be compiled to JavaScript modules (see
package tmpljs).

Usage example

Typically an application keeps its templates in a directory:

	app/templates/
	app/templates/emails/
	...

This code snippet will compile all templates within app/templates and provide
back a registry that can render any of them.  (Error checking is skipped.)

On startup:

	registry, _ := tstmpl.NewBundle().
	    WatchFiles(mode == "dev").           // watch template files, reload on changes (in dev)
	    AddGlobalsFile("templates/globals"). // parse a file of globals
	    AddTemplateDir("templates").         // load *.tmpl in all sub-directories
	    Compile()

To render a template:

	registry.Render(w, "emails/welcome", map[string]interface{}{
	    "user":   user,
	    "unread": 3,
	})

Properties may be maps, data.Map values, or structs (fields are named by
their json tags, or else in lowerCamel case).

The tstmpl command (cmd/tstmpl) wraps the same packages: "tstmpl check"
reports template errors, "tstmpl generate" writes the .d.ts and .js files,
and "tstmpl render" renders one template with properties from a JSON, YAML
or TOML file.

Advanced Usage

The tstmpl package provides a friendly interface to its sub-packages.  Tools
that only need the parsed declarations are better served by using
tstmpl/parse directly.
*/
package tstmpl
