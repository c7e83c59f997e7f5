package observability

import (
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	// Edit hooks
	e := NoopEditHooks{}
	e.OnMutation("add_child", time.Millisecond, nil)
	e.OnMutation("remove_node", time.Millisecond, errors.New("forbidden"))
	e.OnReconcile(3, 2, time.Millisecond)

	// Token hooks
	tk := NoopTokenHooks{}
	tk.OnExport(4, 3, 128)
	tk.OnImport(4, 3, 1, nil)

	// Clipboard hooks
	c := NoopClipboardHooks{}
	c.OnWrite("file", 128, nil)
	c.OnRead("redis", false, nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Edit().(NoopEditHooks); !ok {
		t.Error("Edit() should return NoopEditHooks by default")
	}
	if _, ok := Token().(NoopTokenHooks); !ok {
		t.Error("Token() should return NoopTokenHooks by default")
	}
	if _, ok := Clipboard().(NoopClipboardHooks); !ok {
		t.Error("Clipboard() should return NoopClipboardHooks by default")
	}

	// Set custom hooks
	customEdit := &testEditHooks{}
	SetEditHooks(customEdit)
	if Edit() != customEdit {
		t.Error("SetEditHooks should set custom hooks")
	}

	customToken := &testTokenHooks{}
	SetTokenHooks(customToken)
	if Token() != customToken {
		t.Error("SetTokenHooks should set custom hooks")
	}

	customClipboard := &testClipboardHooks{}
	SetClipboardHooks(customClipboard)
	if Clipboard() != customClipboard {
		t.Error("SetClipboardHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Edit().(NoopEditHooks); !ok {
		t.Error("Reset() should restore NoopEditHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testEditHooks{}
	SetEditHooks(custom)

	// Setting nil should be ignored
	SetEditHooks(nil)

	if Edit() != custom {
		t.Error("SetEditHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testEditHooks struct{ NoopEditHooks }
type testTokenHooks struct{ NoopTokenHooks }
type testClipboardHooks struct{ NoopClipboardHooks }
