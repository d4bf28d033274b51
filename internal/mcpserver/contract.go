package mcpserver

// EmbedSyntax describes sync blocks and embed declarations so LLM consumers
// can place live section embeds in notes.
const EmbedSyntax = `# Sync Embed Syntax

A sync block is a fenced code block with the language ` + "`" + `sync` + "`" + `. Each line that
starts with an embed declaration opens one live, editable window onto another
note or one of its sections. Other lines are ignored.

` + "```" + `markdown
` + "```" + `sync
![[Projects]]
![[Projects#Tasks]]
![[Projects#Tasks|Open tasks]]
![[Projects#Tasks|Open tasks{height:300px,maxHeight:40em}]]
![[#Local section]]
` + "```" + `
` + "```" + `

## Declaration

` + "`" + `![[path#section|alias{options}]]` + "`" + `

1. **path** is a note name or vault path, without ` + "`" + `.md` + "`" + `. Names resolve like
   wikilinks: by file name anywhere in the vault, preferring the embedding note's folder.
2. **section** is the exact heading text (without the hashes). Omit it to embed the
   whole note. The section runs from its heading to the next heading of the same or
   a higher level.
3. **alias** replaces the label shown above the window.
4. **options** are ` + "`" + `key:value` + "`" + ` pairs separated by commas: ` + "`" + `height` + "`" + `, ` + "`" + `maxHeight` + "`" + `,
   ` + "`" + `title` + "`" + ` (true/false), ` + "`" + `collapse` + "`" + ` (true/false). They may also follow the closing ` + "`" + `]]` + "`" + `.
5. An empty path (` + "`" + `![[#Heading]]` + "`" + `) embeds a section of the note containing the block.
   Embedding the containing note itself is refused as recursive.

## Editing rules inside a section window

- The heading line is read-only.
- Headings inside the window must be deeper than the section heading; pasted
  headings at or above its level are demoted.
- Edits are written back to the source note after a short pause.

## Section tools

- ` + "`" + `list_sections` + "`" + ` returns the heading outline of a note.
- ` + "`" + `read_section` + "`" + ` returns a section with its checksum.
- ` + "`" + `write_section` + "`" + ` replaces the body below a heading. Pass the checksum from
  ` + "`" + `read_section` + "`" + ` as ` + "`" + `if_match` + "`" + ` to avoid overwriting concurrent edits.
`
