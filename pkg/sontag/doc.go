// Package sontag implements the Sontag template language: a text template
// engine with inline expressions, pipe-style filters, comments, and
// extensible multi-part control tags.
//
// Basic Usage:
//
//	engine := sontag.New(sontag.WithLoader(sontag.NewFileLoader("./templates")))
//
//	out, err := engine.RenderString("Hello, {{ name | upper }}!", sontag.Context{
//	    "name": "Ada",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out) // Hello, ADA!
//
// Template Syntax:
//
// Expressions: {{ name }}, {{ price * 1.2 }}, {{ user.address.city }}
//
// Filters: {{ name | upper }}, {{ items | join: ", " }}
//
// Tags: {% if admin %}...{% else %}...{% endif %},
// {% for item in items %}...{% endfor %}, {% set x = 1 %},
// {% include "header.html" %}
//
// Comments: {# never rendered #}
//
// Control constructs are plugins: the engine routes tag names through a
// TagRegistry and knows nothing about the semantics of any particular tag.
// New constructs are added with AddTag; see TagDescriptor.
package sontag
