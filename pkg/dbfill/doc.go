// Package dbfill holds the public vocabulary of the dbfill schema exporter:
// entity type descriptors, the Registry and Sink interfaces, the ordered
// SchemaMap written to the parsed cache, sentinel errors, and exit codes.
//
// The exporter reads a schema snapshot from a Registry, filters it through
// exclusion rules, checks that every required relation still has a target,
// and writes the result as JSON:
//
//	{
//	  "foodgram": {
//	    "recipe": {
//	      "contenttype_id": 7,
//	      "model_name": "Recipe",
//	      "default_related_name": "recipes",
//	      "simple": {"name": "CharField"},
//	      "fk": {"author": 4},
//	      "mtm": {"tags": {"contenttype_id": 9, "related_name": "recipes"}}
//	    }
//	  }
//	}
package dbfill
