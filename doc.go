// Copyright 2021 Jonathan Amsterdam.

/*
fsops is a command-line client for Google Cloud Firestore collections.
Each invocation performs one operation, chosen by an option:

  fsops --sync COLLECTION
  fsops --delete COLLECTION ID
  fsops --add COLLECTION FIELD VALUE [FIELD VALUE ...]
  fsops --update COLLECTION ID FIELD VALUE [FIELD VALUE ...]
  fsops --csv COLLECTION FILE
  fsops --query COLLECTION FIELD OP VALUE [FIELD OP VALUE ...]

If more than one is given, the first in the list above runs and the others
are ignored. With none, fsops does nothing.

An option takes every argument after it up to the next one that begins
with a dash. A negative number is an argument, not an option.


Sync

--sync writes each document of the collection to the file
collections/COLLECTION.txt, one line per document:

  ID: {field1: "value1", field2: "value2"}

Fields are sorted by name. The file is replaced on each run. The --dir flag
or the collections_dir config setting changes the directory.

Documents are written as they are read. If reading fails partway through,
the file holds the documents read before the failure. If the collection name
is invalid, no file is written.


Fields

--add and --update take alternating field names and values. A trailing name
without a value is ignored. --update changes only the named fields.

Values are stored as strings. With --typed, values that look like integers or
floating-point numbers are stored as numbers. This also applies to query
values and CSV cells.


CSV

--csv adds one document per row of the file, using the first row as field
names. Rows are written one at a time; if a write fails, the rows before it
stay written. Use --import-rate to limit the number of writes per second.


Query

--query takes (FIELD, OP, VALUE) triples, all of which must hold. OP is any
operator Firestore accepts, such as ==, !=, <, <=, > or >=. A trailing
incomplete triple is ignored. Results are printed to standard output in the
format chosen by --format: text (the sync line format), json (one object per
line) or csv. --order-by FIELD[:desc] and --limit N shape the result.

Example:
  fsops --query cities state == CA pop '>' 100000 --typed --order-by pop:desc


Configuration

The project, database, credentials file, sync directory and output format
are read from $XDG_CONFIG_HOME/fsops/config.yml, then from the environment
variables FSOPS_PROJECT (or GOOGLE_CLOUD_PROJECT), FSOPS_DATABASE,
FSOPS_CREDENTIALS, FSOPS_DIR and FSOPS_FORMAT, then from flags. A .env file
in the current directory is loaded into the environment first. Without a
project, the client library detects one from the credentials.
*/
package main
