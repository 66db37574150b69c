package mcpserver

// NoteFormat describes the sectioned note file format for LLM clients.
const NoteFormat = `# Quire Note Format

A note file is plain UTF-8 text split into named sections.

## Structure

` + "```" + `text
<section=default>Text of the first section.
It may span lines.<section=ideas>Text of the second section.
` + "```" + `

## Rules

1. A section starts with the marker ` + "`" + `<section=NAME>` + "`" + ` and runs until the next
   marker or the end of the file. There is no closing marker and no separator.
2. **NAME** is letters only (` + "`" + `a-z` + "`" + `, ` + "`" + `A-Z` + "`" + `), at least two characters,
   unique within the file. Names are case-sensitive.
3. Sections keep the order in which they appear. The first one is shown by default.
4. Text before the first marker is dropped on load.
5. A file without any marker is not a note file. Opening one starts an empty
   ` + "`" + `default` + "`" + ` section instead.
6. Section text is stored verbatim. A ` + "`" + `<section=...>` + "`" + ` marker inside it is not
   escaped and splits the section on the next load.
7. A file always keeps at least one section.

## Working with tools

- ` + "`" + `list_sections` + "`" + ` then ` + "`" + `read_section` + "`" + ` to read.
- ` + "`" + `write_section` + "`" + `, ` + "`" + `add_section` + "`" + ` and ` + "`" + `delete_section` + "`" + ` only change memory.
  Call ` + "`" + `save_file` + "`" + ` to write the file.
- ` + "`" + `find_in_section` + "`" + ` is case-insensitive and needs at least two characters.
`
