package config

// Keywords are routed around the renamer and emitted with surrounding
// spaces so they stay lexically separate from rewritten neighbours.
var Keywords = []string{
	"None", "and", "as", "assert", "async", "await", "break", "class", "continue",
	"def", "del", "elif", "else", "except", "finally", "for", "from",
	"global", "if", "import", "in", "is", "lambda", "nonlocal", "not",
	"or", "pass", "raise", "return", "try", "while", "with", "yield",
}

// ImportKeywords start lines that are returned untouched.
var ImportKeywords = []string{"import", "from"}

// Builtins is the public namespace of the builtins module. Each name can be
// reached indirectly as getattr(__import__('builtins'), name) and is never
// renamed.
var Builtins = []string{
	// functions and types
	"abs", "aiter", "all", "anext", "any", "ascii", "bin", "bool", "breakpoint",
	"bytearray", "bytes", "callable", "chr", "classmethod", "compile", "complex",
	"copyright", "credits", "delattr", "dict", "dir", "divmod", "enumerate",
	"eval", "exec", "exit", "filter", "float", "format", "frozenset", "getattr",
	"globals", "hasattr", "hash", "help", "hex", "id", "input", "int",
	"isinstance", "issubclass", "iter", "len", "license", "list", "locals",
	"map", "max", "memoryview", "min", "next", "object", "oct", "open", "ord",
	"pow", "print", "property", "quit", "range", "repr", "reversed", "round",
	"set", "setattr", "slice", "sorted", "staticmethod", "str", "sum", "super",
	"tuple", "type", "vars", "zip", "__import__",

	// constants
	"Ellipsis", "NotImplemented", "__debug__",

	// exceptions
	"ArithmeticError", "AssertionError", "AttributeError", "BaseException",
	"BaseExceptionGroup", "BlockingIOError", "BrokenPipeError", "BufferError",
	"ChildProcessError", "ConnectionAbortedError", "ConnectionError",
	"ConnectionRefusedError", "ConnectionResetError", "EOFError",
	"EnvironmentError", "Exception", "ExceptionGroup", "FileExistsError",
	"FileNotFoundError", "FloatingPointError", "GeneratorExit", "IOError",
	"ImportError", "IndentationError", "IndexError", "InterruptedError",
	"IsADirectoryError", "KeyError", "KeyboardInterrupt", "LookupError",
	"MemoryError", "ModuleNotFoundError", "NameError", "NotADirectoryError",
	"NotImplementedError", "OSError", "OverflowError", "PermissionError",
	"ProcessLookupError", "PythonFinalizationError", "RecursionError",
	"ReferenceError", "RuntimeError", "StopAsyncIteration", "StopIteration",
	"SyntaxError", "SystemError", "SystemExit", "TabError", "TimeoutError",
	"TypeError", "UnboundLocalError", "UnicodeDecodeError", "UnicodeEncodeError",
	"UnicodeError", "UnicodeTranslateError", "ValueError", "ZeroDivisionError",

	// warnings
	"BytesWarning", "DeprecationWarning", "EncodingWarning", "FutureWarning",
	"ImportWarning", "PendingDeprecationWarning", "ResourceWarning",
	"RuntimeWarning", "SyntaxWarning", "UnicodeWarning", "UserWarning", "Warning",
}

// DefaultReplacements rewrites the boolean constants into comparisons.
func DefaultReplacements() map[string]string {
	return map[string]string{
		"True":  "(()==())",
		"False": "(()==[])",
	}
}
