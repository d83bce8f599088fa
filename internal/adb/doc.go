// Package adb connects the DeviceLab controller to Android display devices
// through the Android Debug Bridge server.
//
// Tracker implements device.Monitor on top of the server's device
// tracking, and Navigator implements device.Navigator by launching a
// VIEW intent on the configured browser activity:
//
//	am start -a android.intent.action.VIEW \
//	    -n com.android.chrome/com.google.android.apps.chrome.Main \
//	    -f 0x10000000 -d '<url>' \
//	    --es com.android.browser.application_id com.android.chrome
package adb
