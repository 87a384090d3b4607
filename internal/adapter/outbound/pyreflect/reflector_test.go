package pyreflect_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/orchestrate/internal/adapter/outbound/pyreflect"
	"github.com/i2y/orchestrate/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

const toolsSource = `from typing import Optional, List, Dict, Literal, Set
from pydantic import BaseModel, Field
from ibm_watsonx_orchestrate.agent_builder.tools import tool, ToolPermission
from ibm_watsonx_orchestrate.agent_builder.connections import ConnectionType


class Address(BaseModel):
    """A postal address."""
    street: str
    zip_code: Optional[str] = None


class Person(BaseModel):
    name: str = Field(description="Full name")
    age: int = 0
    address: Address
    nickname: Optional[str]


def helper(x):
    return x


@tool
def f(x: Optional[str] = None):
    pass


@tool(name="get_weather", permission=ToolPermission.READ_WRITE,
      expected_credentials=["weather_app", {"app_id": "maps", "type": ConnectionType.API_KEY_AUTH}])
def weather(self, city: str, days: int = 3, units: Literal["c", "f"] = "c", *args, **kwargs) -> Dict[str, float]:
    """Get the weather forecast.

    Looks the city up first.

    Args:
        city (str): The city to look up.
        days: How many days
            to forecast.

    Returns:
        dict: Temperatures by day.
    """
    return {}


@tool()
async def register(person: Person, tags: Set[str], notes: str | None, extra) -> List[Person]:
    """Register a person.

    :param person: Who to register.
    :returns: Everyone registered so far.
    """
    return []


@tool(description="Explicit wins", input_schema={"type": "object", "properties": {"q": {"type": "string"}}, "required": ["q"]})
def search(q):
    """Docstring loses."""
    return q
`

func reflect(t *testing.T) []pyreflect.PythonTool {
	t.Helper()
	dir := t.TempDir()
	pkg := filepath.Join(dir, "tools")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	path := filepath.Join(pkg, "weather_tools.py")
	require.NoError(t, os.WriteFile(path, []byte(toolsSource), 0o644))

	r := pyreflect.NewReflector(dir, testLogger())
	tools, err := r.ReflectFile(context.Background(), path)
	require.NoError(t, err)
	return tools
}

func byName(tools []pyreflect.PythonTool, name string) *pyreflect.PythonTool {
	for i := range tools {
		if tools[i].Spec.Name == name {
			return &tools[i]
		}
	}
	return nil
}

func TestReflector_FindsDecoratedFunctionsOnly(t *testing.T) {
	tools := reflect(t)
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Spec.Name)
	}
	assert.Equal(t, []string{"f", "get_weather", "register", "search"}, names)
}

func TestReflector_OptionalParameterIsUnwrapped(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f := byName(reflect(t), "f")
	require.NotNil(f)

	raw, err := json.Marshal(f.Spec.InputSchema.Properties)
	require.NoError(err)
	assert.JSONEq(`{"x":{"type":"string"}}`, string(raw))
	assert.Empty(f.Spec.InputSchema.Required)

	out, err := json.Marshal(f.Spec.OutputSchema)
	require.NoError(err)
	assert.JSONEq(`{}`, string(out))

	assert.Equal("tools.weather_tools:f", f.Spec.Binding.Python.Function)
	assert.Equal(domain.PermissionReadOnly, f.Spec.Permission)
}

func TestReflector_DecoratorArgumentsAndDocstring(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	w := byName(reflect(t), "get_weather")
	require.NotNil(w)

	assert.Equal("weather", w.FunctionName)
	assert.Equal(domain.PermissionReadWrite, w.Spec.Permission)
	assert.Equal("Get the weather forecast.\n\nLooks the city up first.", w.Spec.Description)
	assert.Equal("tools.weather_tools:weather", w.Spec.Binding.Python.Function)

	assert.Equal([]string{"city", "days", "units"}, w.Spec.InputSchema.Properties.Keys())
	assert.Equal([]string{"city"}, w.Spec.InputSchema.Required)

	city, _ := w.Spec.InputSchema.Properties.Get("city")
	assert.Equal(domain.SchemaType(domain.TypeString), city.Type)
	assert.Equal("The city to look up.", city.Description)

	days, _ := w.Spec.InputSchema.Properties.Get("days")
	assert.Equal(domain.SchemaType(domain.TypeInteger), days.Type)
	assert.Equal("How many days\nto forecast.", days.Description)

	units, _ := w.Spec.InputSchema.Properties.Get("units")
	assert.Equal(domain.SchemaType(domain.TypeString), units.Type)
	assert.Equal([]any{"c", "f"}, units.Enum)

	assert.Equal(domain.SchemaType(domain.TypeObject), w.Spec.OutputSchema.Type)
	require.NotNil(w.Spec.OutputSchema.AdditionalProperties)
	assert.Equal(domain.SchemaType(domain.TypeNumber), w.Spec.OutputSchema.AdditionalProperties.Type)
	assert.Equal("Temperatures by day.", w.Spec.OutputSchema.Description)

	require.Len(w.ExpectedCredentials, 2)
	assert.Equal("weather_app", w.ExpectedCredentials[0].AppID)
	assert.Nil(w.ExpectedCredentials[0].Type)
	assert.Equal("maps", w.ExpectedCredentials[1].AppID)
	require.NotNil(w.ExpectedCredentials[1].Type)
	assert.Equal(domain.ConnectionAPIKeyAuth, *w.ExpectedCredentials[1].Type)
}

func TestReflector_PydanticModels(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	reg := byName(reflect(t), "register")
	require.NotNil(reg)
	assert.Equal("Register a person.", reg.Spec.Description)

	in := reg.Spec.InputSchema
	assert.Equal([]string{"person", "tags", "notes", "extra"}, in.Properties.Keys())
	assert.Equal([]string{"person", "tags", "extra"}, in.Required)

	person, _ := in.Properties.Get("person")
	assert.Equal("Who to register.", person.Description)
	assert.Equal("Person", person.Title)
	assert.Equal([]string{"name", "age", "address", "nickname"}, person.Properties.Keys())
	// nickname is Optional without a default; the null branch is dropped and it becomes optional.
	assert.Equal([]string{"name", "address"}, person.Required)

	name, _ := person.Properties.Get("name")
	assert.Equal("Name", name.Title)
	assert.Equal("Full name", name.Description)

	age, _ := person.Properties.Get("age")
	assert.Equal(int64(0), age.Default)

	nickname, _ := person.Properties.Get("nickname")
	assert.Equal(domain.SchemaType(domain.TypeString), nickname.Type)
	assert.Equal("Nickname", nickname.Title)

	address, _ := person.Properties.Get("address")
	assert.Equal("A postal address.", address.Description)
	zip, _ := address.Properties.Get("zip_code")
	assert.Equal("Zip Code", zip.Title)
	assert.Equal([]string{"street"}, address.Required)

	tags, _ := in.Properties.Get("tags")
	assert.Equal(domain.SchemaType(domain.TypeArray), tags.Type)
	require.NotNil(tags.UniqueItems)
	assert.True(*tags.UniqueItems)

	notes, _ := in.Properties.Get("notes")
	assert.Equal(domain.SchemaType(domain.TypeString), notes.Type)

	extra, _ := in.Properties.Get("extra")
	raw, err := json.Marshal(extra)
	require.NoError(err)
	assert.JSONEq(`{}`, string(raw))

	assert.Equal(domain.SchemaType(domain.TypeArray), reg.Spec.OutputSchema.Type)
	assert.Equal("Person", reg.Spec.OutputSchema.Items.Title)
	assert.Equal("Everyone registered so far.", reg.Spec.OutputSchema.Description)
}

func TestReflector_ExplicitSchemaWins(t *testing.T) {
	s := byName(reflect(t), "search")
	require.NotNil(t, s)
	assert.Equal(t, "Explicit wins", s.Spec.Description)
	assert.Equal(t, []string{"q"}, s.Spec.InputSchema.Required)
	q, _ := s.Spec.InputSchema.Properties.Get("q")
	assert.Equal(t, domain.SchemaType(domain.TypeString), q.Type)
}

func TestReflector_BadDecoratorArgument(t *testing.T) {
	r := pyreflect.NewReflector("", testLogger())
	_, err := r.ReflectSource("bad.py", []byte("@tool(permission=\"superuser\")\ndef g():\n    pass\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "superuser")
}

func TestReflector_ModulePathOutsideWorkDir(t *testing.T) {
	r := pyreflect.NewReflector(t.TempDir(), testLogger())
	tools, err := r.ReflectSource(filepath.Join(os.TempDir(), "elsewhere", "single.py"), []byte("@tool\ndef h(a: int) -> int:\n    return a\n"))
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "single:h", tools[0].Spec.Binding.Python.Function)
	assert.Equal(t, domain.SchemaType(domain.TypeInteger), tools[0].Spec.OutputSchema.Type)
}

const classToolSource = `from ibm_watsonx_orchestrate.agent_builder.tools import tool


class Weather:
    @tool
    def forecast(self, city: str) -> str:
        return city

    @staticmethod
    def helper():
        pass


@tool
def lookup(cls, city: str) -> str:
    return city
`

func TestReflector_ToolMethodsAreSkippedWithWarning(t *testing.T) {
	var logs bytes.Buffer
	r := pyreflect.NewReflector("", slog.New(slog.NewTextHandler(&logs, nil)))

	tools, err := r.ReflectSource("weather.py", []byte(classToolSource))

	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "lookup", tools[0].Spec.Name)
	assert.Equal(t, []string{"city"}, tools[0].Spec.InputSchema.Required)
	assert.Contains(t, logs.String(), "Skipping @tool method")
	assert.Contains(t, logs.String(), "class=Weather method=forecast line=6")
	assert.NotContains(t, logs.String(), "method=helper")
}
