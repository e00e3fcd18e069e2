package tooluse

import (
	"testing"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shellBlockTypes = map[string]string{"shell": "shell", "save": "save", "append": "append", "patch": "patch"}

func TestExtractMarkdownFencedBlock(t *testing.T) {
	content := "Sure, here:\n```shell\nls -la\n```\ndone"
	uses := Extract(content, shellBlockTypes)
	require.Len(t, uses, 1)
	assert.Equal(t, "shell", uses[0].Tool)
	assert.Equal(t, "ls -la", uses[0].Content)
	assert.Equal(t, chat.SourceMarkdown, uses[0].Source)
}

func TestExtractMarkdownWithPositionalArgs(t *testing.T) {
	content := "```save hello.py\nprint(1)\n```"
	uses := Extract(content, shellBlockTypes)
	require.Len(t, uses, 1)
	assert.Equal(t, []string{"hello.py"}, uses[0].Args)
	assert.Equal(t, "print(1)", uses[0].Content)
}

func TestExtractMarkdownUnknownBlockTypeIsIgnored(t *testing.T) {
	content := "```python\nprint(1)\n```"
	uses := Extract(content, shellBlockTypes)
	assert.Empty(t, uses)
}

func TestExtractMarkdownNestedFenceInSaveBody(t *testing.T) {
	content := "```save notes.md\n" +
		"# Title\n" +
		"Here's an example:\n" +
		"```python\n" +
		"print('hi')\n" +
		"```\n" +
		"more text\n" +
		"```"
	uses := Extract(content, shellBlockTypes)
	require.Len(t, uses, 1)
	assert.Contains(t, uses[0].Content, "```python")
	assert.Contains(t, uses[0].Content, "more text")
}

func TestExtractEmptyMessageYieldsNoToolUses(t *testing.T) {
	assert.Empty(t, Extract("", shellBlockTypes))
}

func TestExtractGptmeXML(t *testing.T) {
	content := `before <tool-use><shell>ls -la</shell></tool-use> after`
	uses := Extract(content, shellBlockTypes)
	require.Len(t, uses, 1)
	assert.Equal(t, "shell", uses[0].Tool)
	assert.Equal(t, "ls -la", uses[0].Content)
	assert.Equal(t, chat.SourceGptmeXML, uses[0].Source)
}

func TestExtractGptmeXMLMultipleBlocks(t *testing.T) {
	content := `<tool-use><shell>ls</shell></tool-use> then <tool-use><shell>pwd</shell></tool-use>`
	uses := Extract(content, shellBlockTypes)
	require.Len(t, uses, 2)
	assert.Equal(t, "ls", uses[0].Content)
	assert.Equal(t, "pwd", uses[1].Content)
}

func TestExtractInvokeXML(t *testing.T) {
	content := `<function_calls><invoke name="shell">ls -la</invoke></function_calls>`
	uses := Extract(content, shellBlockTypes)
	require.Len(t, uses, 1)
	assert.Equal(t, "shell", uses[0].Tool)
	assert.Equal(t, "ls -la", uses[0].Content)
	assert.Equal(t, chat.SourceInvokeXML, uses[0].Source)
}

func TestExtractInvokeXMLMultipleInvokes(t *testing.T) {
	content := `<function_calls><invoke name="shell">ls</invoke><invoke name="shell">pwd</invoke></function_calls>`
	uses := Extract(content, shellBlockTypes)
	require.Len(t, uses, 2)
	assert.Equal(t, "ls", uses[0].Content)
	assert.Equal(t, "pwd", uses[1].Content)
}

func TestExtractOrdersByTextualPosition(t *testing.T) {
	content := `<function_calls><invoke name="shell">first</invoke></function_calls>
text
` + "```shell\nsecond\n```" + `
<tool-use><shell>third</shell></tool-use>`
	uses := Extract(content, shellBlockTypes)
	require.Len(t, uses, 3)
	assert.Equal(t, "first", uses[0].Content)
	assert.Equal(t, "second", uses[1].Content)
	assert.Equal(t, "third", uses[2].Content)
}

func TestFromProviderCallsPrecedeTextExtracted(t *testing.T) {
	msg := chat.Message{
		Content: "```shell\nls\n```",
		ToolCalls: []chat.ToolCall{
			{ID: "call-1", Function: chat.FunctionCall{Name: "shell", Arguments: `{"cmd":"pwd"}`}},
		},
	}
	uses := ExtractAll(msg, shellBlockTypes)
	require.Len(t, uses, 2)
	assert.Equal(t, chat.SourceProviderCall, uses[0].Source)
	assert.Equal(t, "call-1", uses[0].CallID)
	assert.Equal(t, chat.SourceMarkdown, uses[1].Source)
}

func TestBlockTypeMapFlattensSpecs(t *testing.T) {
	specs := map[string]*chat.ToolSpec{
		"save": {Name: "save", BlockTypes: []string{"save", "write"}},
	}
	m := BlockTypeMap(specs)
	assert.Equal(t, "save", m["save"])
	assert.Equal(t, "save", m["write"])
}
